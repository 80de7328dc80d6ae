package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"warehouse-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port     string
	GRPCPort string
	DB       DB
	JWT      JWT
	Redis    Redis
	Kafka    Kafka
	Stock    Stock
}

type DB struct {
	database.Config
}

type JWT struct {
	Secret string
	Issuer string
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type Stock struct {
	DefaultLocation  string
	LowStockInterval time.Duration // 0 disables the monitor
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port:     getEnv("APP_PORT", log),
		GRPCPort: getEnvDefault("GRPC_PORT", ""),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
			},
		},
		JWT: JWT{
			Secret: getEnv("JWT_SECRET", log),
			Issuer: getEnvDefault("JWT_ISSUER", ""),
		},
		Redis: Redis{
			Enabled:    getEnvDefault("REDIS_ENABLED", "false") == "true",
			Addr:       getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password:   getEnvDefault("REDIS_PASSWORD", ""),
			DB:         atoiDefault(getEnvDefault("REDIS_DB", "0"), 0),
			TTLSeconds: atoiDefault(getEnvDefault("CACHE_TTL_SECONDS", "60"), 60),
		},
		Kafka: Kafka{
			Enabled: getEnvDefault("KAFKA_ENABLED", "false") == "true",
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnvDefault("KAFKA_TOPIC_EVENTS", "warehouse.events"),
		},
		Stock: Stock{
			DefaultLocation:  getEnvDefault("DEFAULT_LOCATION", "main"),
			LowStockInterval: parseDurationDefault(getEnvDefault("LOW_STOCK_INTERVAL", "0"), 0),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDurationDefault(s string, def time.Duration) time.Duration {
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
