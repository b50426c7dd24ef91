package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	DBMaxConns      int32
	RequestTimeout  time.Duration
	RedisAddr       string
	KafkaBrokers    []string
	KafkaOrderTopic string
	LogLevel        string
	RunMigrations   bool
}

// Load reads configuration from environment variables. Call godotenv.Load
// first if a .env file should be honoured.
func Load() (Config, error) {
	cfg := Config{
		Addr:            getEnv("PARK_SHOP_ADDR", ":8080"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTTTL:          getDuration("JWT_TTL", 72*time.Hour),
		DBMaxConns:      int32(getInt("DB_MAX_CONNS", 10)),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 10*time.Second),
		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order.placed"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		RunMigrations:   getBool("RUN_MIGRATIONS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is not set")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, errors.New("DB_MAX_CONNS must be positive")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// getDuration accepts Go duration strings ("2s") or plain milliseconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
