package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/park")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PARK_SHOP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("DB_MAX_CONNS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "order.placed", cfg.KafkaOrderTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.RunMigrations)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/park")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PARK_SHOP_ADDR", ":9090")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("REQUEST_TIMEOUT", "2500")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, int32(4), cfg.DBMaxConns)
	assert.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.RunMigrations)
}

func TestLoad_RequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")
	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is not set")

	t.Setenv("DATABASE_URL", "postgres://localhost/park")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.EqualError(t, err, "JWT_SECRET is not set")
}
