package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "ticketboss")
	t.Setenv("DB_ACQUIRE_TIMEOUT", "5s")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	require.Equal(t, "app", cfg.DBUser)
	require.Equal(t, "3306", cfg.DBPort)
	require.Equal(t, 5*time.Second, cfg.DBAcquireTimeout)
	require.Equal(t, 10*time.Second, cfg.DBLockWaitTimeout)
	require.Equal(t, DefaultEventID, cfg.EventID)
	require.True(t, cfg.IsProduction())
}

func TestRateLimitConfigNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	require.Equal(t, 1, cfg.Capacity)
	require.Equal(t, 1, cfg.RefillTokens)
	require.Equal(t, 2*time.Second, cfg.RefillInterval)
	require.Equal(t, 10*time.Second, cfg.TTL)
	require.Equal(t, "ip_partner_route", cfg.KeyStrategy)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_METHODS", "get, head")

	cfg := LoadCacheConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	require.Equal(t, time.Second, cfg.TTL)
}

func TestLoadBrokerConfig(t *testing.T) {
	t.Setenv("EVENTS_BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")

	cfg := LoadBrokerConfig()
	require.Equal(t, "kafka", cfg.Broker)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQPURL)
}
