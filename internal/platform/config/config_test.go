package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.True(t, cfg.Postgres.MigrateOnStart)
	assert.Empty(t, cfg.Redis.URL)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Sync.LeaseTTL)
	assert.Equal(t, 50, cfg.Sync.MaxErrors)
	assert.Equal(t, "daily", cfg.Sync.DefaultFrequency)
	assert.Empty(t, cfg.Sync.RulesetPath)
	assert.Equal(t, "attest-audit-materializer", cfg.Kafka.ConsumerGroup)
	assert.Equal(t, 1.0, cfg.Audit.FindingSampleRate)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ATTEST_ADDR", ":9090")
	t.Setenv("ATTEST_POSTGRES_DSN", "postgres://localhost/attest")
	t.Setenv("ATTEST_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092, kafka-1:9092,")
	t.Setenv("ATTEST_SYNC_LEASE_TTL", "90s")
	t.Setenv("ATTEST_SYNC_APPLY_WORKERS", "16")
	t.Setenv("ATTEST_POSTGRES_MIGRATE", "false")
	t.Setenv("ATTEST_AUDIT_FINDING_SAMPLE_RATE", "0.25")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/attest", cfg.Postgres.DSN)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Sync.LeaseTTL)
	assert.Equal(t, 16, cfg.Sync.ApplyWorkers)
	assert.False(t, cfg.Postgres.MigrateOnStart)
	assert.Equal(t, 0.25, cfg.Audit.FindingSampleRate)
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("ATTEST_SYNC_LEASE_TTL", "not-a-duration")
	t.Setenv("ATTEST_SYNC_APPLY_WORKERS", "many")
	t.Setenv("ATTEST_POSTGRES_MIGRATE", "yes please")
	t.Setenv("ATTEST_AUDIT_FINDING_SAMPLE_RATE", "often")

	cfg := FromEnv()

	assert.Equal(t, 5*time.Minute, cfg.Sync.LeaseTTL)
	assert.Equal(t, 8, cfg.Sync.ApplyWorkers)
	assert.True(t, cfg.Postgres.MigrateOnStart)
	assert.Equal(t, 1.0, cfg.Audit.FindingSampleRate)
}
