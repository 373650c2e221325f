// Package config loads engine configuration from the environment.
// Every knob has a development default so a bare `go run ./cmd/server`
// starts against localhost infrastructure.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "attest/pkg/platform/strings"
)

// Config is the full engine configuration.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Sync     SyncConfig
	Catalog  CatalogConfig
	Audit    AuditConfig
	Log      LogConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// PostgresConfig controls the fulfillment and audit database.
// An empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// RedisConfig controls the sync lease backend.
// An empty URL selects the in-process lease.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the audit trail sink.
// Empty brokers disable the outbox relay; events still land in Postgres.
type KafkaConfig struct {
	Brokers           []string
	TopicPrefix       string
	ConsumerGroup     string
	RelayInterval     time.Duration
	RelayBatchSize    int
	TopicPartitions   int32
	ReplicationFactor int16
}

// SyncConfig controls provider sync behavior.
type SyncConfig struct {
	LeaseTTL     time.Duration
	ApplyWorkers int
	MaxErrors    int
	// DefaultFrequency is applied to newly registered applications
	// (hourly, daily or weekly).
	DefaultFrequency string
	// RulesetPath points at the provider mapping ruleset (YAML). Empty
	// means assessments must reference catalog requirement IDs directly.
	RulesetPath string
}

// CatalogConfig points at the requirements catalog seed.
type CatalogConfig struct {
	SeedPath string
}

// AuditConfig tunes the operational leg of the audit trail.
type AuditConfig struct {
	// FindingSampleRate thins out per-finding audit events, the highest
	// volume action during a sync. 1.0 keeps every event.
	FindingSampleRate float64
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds the full config from ATTEST_* environment variables so main
// stays lean.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            getEnv("ATTEST_ADDR", ":8080"),
			ReadTimeout:     getDuration("ATTEST_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDuration("ATTEST_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDuration("ATTEST_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDuration("ATTEST_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             getEnv("ATTEST_POSTGRES_DSN", ""),
			MaxOpenConns:    getInt("ATTEST_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("ATTEST_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("ATTEST_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  getBool("ATTEST_POSTGRES_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          getEnv("ATTEST_REDIS_URL", ""),
			PoolSize:     getInt("ATTEST_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("ATTEST_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("ATTEST_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("ATTEST_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("ATTEST_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           getList("ATTEST_KAFKA_BROKERS"),
			TopicPrefix:       getEnv("ATTEST_KAFKA_TOPIC_PREFIX", "attest.audit"),
			ConsumerGroup:     getEnv("ATTEST_KAFKA_CONSUMER_GROUP", "attest-audit-materializer"),
			RelayInterval:     getDuration("ATTEST_KAFKA_RELAY_INTERVAL", 2*time.Second),
			RelayBatchSize:    getInt("ATTEST_KAFKA_RELAY_BATCH_SIZE", 100),
			TopicPartitions:   int32(getInt("ATTEST_KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("ATTEST_KAFKA_REPLICATION_FACTOR", 1)),
		},
		Sync: SyncConfig{
			LeaseTTL:         getDuration("ATTEST_SYNC_LEASE_TTL", 5*time.Minute),
			ApplyWorkers:     getInt("ATTEST_SYNC_APPLY_WORKERS", 8),
			MaxErrors:        getInt("ATTEST_SYNC_MAX_ERRORS", 50),
			DefaultFrequency: getEnv("ATTEST_SYNC_DEFAULT_FREQUENCY", "daily"),
			RulesetPath:      getEnv("ATTEST_SYNC_RULESET", ""),
		},
		Catalog: CatalogConfig{
			SeedPath: getEnv("ATTEST_CATALOG_SEED", ""),
		},
		Audit: AuditConfig{
			FindingSampleRate: getFloat("ATTEST_AUDIT_FINDING_SAMPLE_RATE", 1.0),
		},
		Log: LogConfig{
			Level:  getEnv("ATTEST_LOG_LEVEL", "info"),
			Format: getEnv("ATTEST_LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getList splits a comma-separated value, dropping empty and duplicate items.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := strutil.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
