package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BotToken  string
	APISecret string
	AdminID   int64
	LogLevel  string
	Database  DatabaseConfig
	API       APIConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// APIConfig holds the ingestion HTTP server settings
type APIConfig struct {
	Host string
	Port string
}

// RedisConfig holds the rate limiter store settings. An empty Addr disables rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig holds token bucket settings for the ingestion API
type RateLimitConfig struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// NotifyConfig holds notification engine settings
type NotifyConfig struct {
	DeliveryTimeout time.Duration
	Workers         int
	SweepInterval   time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:  os.Getenv("BOT_TOKEN"),
		APISecret: os.Getenv("API_SECRET"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "qrwatcher"),
			User:     getEnv("DB_USER", "qrwatcher"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		API: APIConfig{
			Host: getEnv("API_HOST", "0.0.0.0"),
			Port: getEnv("API_PORT", "8000"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("API_SECRET is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	var err error
	if cfg.AdminID, err = getEnvInt64("ADMIN_TG_ID", 0); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cfg.RateLimit, err = loadRateLimit(); err != nil {
		return nil, err
	}
	if cfg.Notify, err = loadNotify(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRateLimit() (RateLimitConfig, error) {
	rl := RateLimitConfig{Prefix: getEnv("RATE_LIMIT_PREFIX", "rl")}

	var err error
	if rl.Capacity, err = getEnvInt("RATE_LIMIT_CAPACITY", 60); err != nil {
		return rl, err
	}
	if rl.RefillTokens, err = getEnvInt("RATE_LIMIT_REFILL_TOKENS", 1); err != nil {
		return rl, err
	}
	if rl.RefillInterval, err = getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", time.Second); err != nil {
		return rl, err
	}
	if rl.TTL, err = getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute); err != nil {
		return rl, err
	}

	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl, nil
}

func loadNotify() (NotifyConfig, error) {
	var n NotifyConfig
	var err error
	if n.DeliveryTimeout, err = getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second); err != nil {
		return n, err
	}
	if n.Workers, err = getEnvInt("FANOUT_WORKERS", 4); err != nil {
		return n, err
	}
	if n.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", 10*time.Minute); err != nil {
		return n, err
	}
	if n.Workers < 1 {
		return n, fmt.Errorf("FANOUT_WORKERS must be positive")
	}
	if n.DeliveryTimeout <= 0 || n.SweepInterval <= 0 {
		return n, fmt.Errorf("DELIVERY_TIMEOUT and SWEEP_INTERVAL must be positive")
	}
	return n, nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// APIAddr returns the ingestion server listen address
func (c *Config) APIAddr() string {
	return c.API.Host + ":" + c.API.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
