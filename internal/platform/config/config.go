// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production deploys
// override through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "worklink/pkg/platform/strings"
)

// Server captures everything the process needs at startup.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	UploadDir      string
	MaxUploadBytes int64

	// AcceptedDocTypes is the closed set a worker may submit.
	// RequiredDocTypes is the subset of which one approval unlocks applying.
	AcceptedDocTypes []string
	RequiredDocTypes []string

	JWTSigningKey string
	InternalToken string

	SubmitRateLimit  int
	SubmitRateWindow time.Duration
	RateLimitOff     bool
}

// RedisConfig holds connection settings for the shared rate limit store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the audit event publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("WORKLINK_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		UploadDir:      envOr("UPLOAD_DIR", "data/uploads"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10<<20),

		AcceptedDocTypes: envList("ACCEPTED_DOC_TYPES", "passport,driver_license,work_permit"),
		RequiredDocTypes: envList("REQUIRED_DOC_TYPES", "passport,work_permit"),

		// Development defaults; override in production.
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		InternalToken: envOr("INTERNAL_TOKEN", "dev-internal-token"),

		SubmitRateLimit:  envInt("SUBMIT_RATE_LIMIT", 10),
		SubmitRateWindow: envDuration("SUBMIT_RATE_WINDOW", time.Hour),
		RateLimitOff:     os.Getenv("RATE_LIMIT_DISABLED") == "true",
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     envInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	cfg.Kafka = KafkaConfig{
		Brokers:    envList("KAFKA_BROKERS", ""),
		AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "worklink.verification.audit"),
	}

	return cfg
}

func envOr(key, dflt string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return dflt
}

func envInt(key string, dflt int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return dflt
}

func envInt64(key string, dflt int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return dflt
}

func envDuration(key string, dflt time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return dflt
}

func envList(key, dflt string) []string {
	raw := envOr(key, dflt)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return platformstrings.DedupeAndTrimLower(strings.Split(raw, ","))
}
