// Package config builds runtime configuration from environment variables so
// main stays lean. Every external dependency (postgres, redis, kafka, the
// advisory text API, the pinning service) is optional: an empty URL disables
// the dependency and the service falls back to its in-memory implementation.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Admin    Admin
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Advisory Advisory
	Pinning  Pinning
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// RequireKYC gates ownership transfers on a submitted KYC profile.
	// This is transport-level policy, not a ledger invariant.
	RequireKYC bool
}

// Admin holds the distinguished admin identity. The address is supplied at
// deployment time and immutable for the process lifetime.
type Admin struct {
	Address string
}

// Postgres configures the durable ledger store.
type Postgres struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis configures the shared history index.
type Redis struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit event pipeline.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Advisory configures the fraud-signal text-completion API.
type Advisory struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Pinning configures the document pinning service.
type Pinning struct {
	Endpoint   string
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments must override LEDGER_ADMIN_ADDRESS and
// LEDGER_JWT_SIGNING_KEY.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("LEDGER_ADDR", ":8080"),
			JWTSigningKey: envOr("LEDGER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			RequireKYC:    os.Getenv("LEDGER_REQUIRE_KYC") == "true",
		},
		Admin: Admin{
			Address: os.Getenv("LEDGER_ADMIN_ADDRESS"),
		},
		Postgres: Postgres{
			URL:          os.Getenv("LEDGER_POSTGRES_URL"),
			MaxOpenConns: envIntOr("LEDGER_POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envIntOr("LEDGER_POSTGRES_MAX_IDLE_CONNS", 5),
		},
		Redis: Redis{
			URL:          os.Getenv("LEDGER_REDIS_URL"),
			PoolSize:     envIntOr("LEDGER_REDIS_POOL_SIZE", 10),
			DialTimeout:  envDurationOr("LEDGER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("LEDGER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("LEDGER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("LEDGER_KAFKA_BROKERS")),
			Topic:   envOr("LEDGER_KAFKA_AUDIT_TOPIC", "landledger.audit"),
		},
		Advisory: Advisory{
			Endpoint: os.Getenv("LEDGER_ADVISORY_ENDPOINT"),
			APIKey:   os.Getenv("LEDGER_ADVISORY_API_KEY"),
			Timeout:  envDurationOr("LEDGER_ADVISORY_TIMEOUT", 15*time.Second),
		},
		Pinning: Pinning{
			Endpoint:   os.Getenv("LEDGER_PINNING_ENDPOINT"),
			GatewayURL: envOr("LEDGER_PINNING_GATEWAY", "https://gateway.pinata.cloud/ipfs/"),
			APIKey:     os.Getenv("LEDGER_PINNING_API_KEY"),
			Timeout:    envDurationOr("LEDGER_PINNING_TIMEOUT", 30*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
