package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration. All values come from the
// environment so main stays lean.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	AdminToken    string
	DefaultRegion string
	CacheTTL      time.Duration
	LogLevel      string
}

const defaultCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("MEDICUS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	cacheTTL := defaultCacheTTL
	if raw := os.Getenv("PATIENT_CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cacheTTL = parsed
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  brokers,
		KafkaTopic:    os.Getenv("KAFKA_AUDIT_TOPIC"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		DefaultRegion: os.Getenv("DEFAULT_PHONE_REGION"),
		CacheTTL:      cacheTTL,
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}
}
