package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the cart service configuration, loaded from the environment
// (and an optional .env file).
type Config struct {
	HTTPAddr         string
	DatabaseURL      string
	RedisAddr        string
	KafkaBrokers     []string
	KafkaTopic       string
	JWTSecret        string
	GuestTokenExpiry time.Duration

	TaxRate          decimal.Decimal
	ShippingFlatRate decimal.Decimal
	FreeShippingOver decimal.Decimal
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters long")
	}

	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaBrokers:     splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "cart-events"),
		JWTSecret:        jwtSecret,
		GuestTokenExpiry: getEnvDuration("GUEST_TOKEN_EXPIRY", 30*24*time.Hour),
		TaxRate:          getEnvDecimal("TAX_RATE", "0.08"),
		ShippingFlatRate: getEnvDecimal("SHIPPING_FLAT_RATE", "10"),
		FreeShippingOver: getEnvDecimal("FREE_SHIPPING_OVER", "100"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
