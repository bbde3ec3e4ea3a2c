package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "newswire/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr string

	Redis    RedisConfig
	Postgres PostgresConfig
	Telegram TelegramConfig
	Kafka    KafkaConfig

	// RateLimitDisabled turns off inbound rate limiting entirely
	// (local development and demos only).
	RateLimitDisabled bool

	// DigestSchedule is a cron expression for the daily digest run.
	DigestSchedule string
}

// RedisConfig holds connection settings for the shared Redis store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the DSN for the user settings database.
type PostgresConfig struct {
	DSN string
}

// TelegramConfig holds bot channel credentials and pacing.
type TelegramConfig struct {
	Token       string
	SendsPerSec int
}

// KafkaConfig holds seed brokers and topics for delivery event publishing.
// Empty Seeds disables publishing.
type KafkaConfig struct {
	Seeds          []string
	DeliveryTopic  string
	ViolationTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("NEWSWIRE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	digest := os.Getenv("NEWSWIRE_DIGEST_SCHEDULE")
	if digest == "" {
		// 08:00 UTC daily
		digest = "0 8 * * *"
	}

	return Server{
		Addr: addr,
		Redis: RedisConfig{
			URL:          os.Getenv("NEWSWIRE_REDIS_URL"),
			PoolSize:     envInt("NEWSWIRE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("NEWSWIRE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("NEWSWIRE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("NEWSWIRE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("NEWSWIRE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("NEWSWIRE_POSTGRES_DSN"),
		},
		Telegram: TelegramConfig{
			Token:       os.Getenv("NEWSWIRE_TELEGRAM_TOKEN"),
			SendsPerSec: envInt("NEWSWIRE_TELEGRAM_SENDS_PER_SEC", 25),
		},
		Kafka: KafkaConfig{
			Seeds:          platformstrings.DedupeAndTrim(strings.Split(os.Getenv("NEWSWIRE_KAFKA_SEEDS"), ",")),
			DeliveryTopic:  envString("NEWSWIRE_KAFKA_DELIVERY_TOPIC", "newswire.deliveries"),
			ViolationTopic: envString("NEWSWIRE_KAFKA_VIOLATION_TOPIC", "newswire.ratelimit-violations"),
		},
		RateLimitDisabled: os.Getenv("NEWSWIRE_RATELIMIT_DISABLED") == "true",
		DigestSchedule:    digest,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

func envDuration(key string, fallback time.Duration) time.Duration {
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
