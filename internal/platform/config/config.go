package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv keeps main lean.
type Config struct {
	Addr     string
	LogLevel string

	// DatabaseURL enables the PostgreSQL stores; empty means in-memory.
	DatabaseURL string

	// RedisURL enables the template catalog and readiness caches.
	RedisURL string

	// KafkaBrokers/AuditTopic enable the Kafka audit sink; empty brokers fall
	// back to the log sink.
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string

	// AnchorMemoPrefix is prepended to the manifest hash in the on-chain memo.
	AnchorMemoPrefix string

	ReadinessCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:              getenv("TOKENOPS_ADDR", ":8080"),
		LogLevel:          getenv("TOKENOPS_LOG_LEVEL", "info"),
		DatabaseURL:       os.Getenv("TOKENOPS_DATABASE_URL"),
		RedisURL:          os.Getenv("TOKENOPS_REDIS_URL"),
		AuditTopic:        getenv("TOKENOPS_AUDIT_TOPIC", "tokenops.audit.compliance"),
		JWTSigningKey:     getenv("TOKENOPS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AnchorMemoPrefix:  getenv("TOKENOPS_ANCHOR_MEMO_PREFIX", "COMPLIANCE_HASH:"),
		ReadinessCacheTTL: 2 * time.Minute,
	}
	if brokers := os.Getenv("TOKENOPS_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if ttl := os.Getenv("TOKENOPS_READINESS_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.ReadinessCacheTTL = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
