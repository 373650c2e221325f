// Package kafka publishes audit events to Kafka, one topic per category.
// The outbox relay is the only producer path in normal operation; Kafka is
// the source of truth for the audit trail.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "attest/pkg/platform/audit"
)

// DefaultTopicPrefix prefixes the per-category audit topics.
const DefaultTopicPrefix = "attest.audit"

// Producer writes audit payloads to category topics.
type Producer struct {
	client      *kgo.Client
	topicPrefix string
}

// Option configures a Producer.
type Option func(*Producer)

// WithTopicPrefix overrides the audit topic prefix.
func WithTopicPrefix(prefix string) Option {
	return func(p *Producer) {
		p.topicPrefix = prefix
	}
}

// NewProducer connects to the given brokers. Producer acks are required from
// all in-sync replicas; audit events must not be lost to a single broker
// failure.
func NewProducer(brokers []string, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	p := &Producer{
		client:      client,
		topicPrefix: DefaultTopicPrefix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Topic returns the topic for a category, e.g. "attest.audit.compliance".
func (p *Producer) Topic(category audit.EventCategory) string {
	return p.topicPrefix + "." + string(category)
}

// Topics returns every audit topic this producer writes to.
func (p *Producer) Topics() []string {
	return []string{
		p.Topic(audit.CategoryCompliance),
		p.Topic(audit.CategorySecurity),
		p.Topic(audit.CategoryOperations),
	}
}

// Publish produces one payload synchronously. The key is the aggregate ID so
// per-application ordering is preserved within a partition.
func (p *Producer) Publish(ctx context.Context, category audit.EventCategory, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: p.Topic(category),
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// EnsureTopics creates the audit topics if they do not exist.
// Safe to call on every startup.
func (p *Producer) EnsureTopics(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)

	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.Topics()...)
	if err != nil {
		return fmt.Errorf("create audit topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
