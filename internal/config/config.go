package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	Resolver   ResolverConfig

	// Warnings collects env values that failed to parse and fell back to defaults.
	// They are reported once the logger exists.
	Warnings []string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// LLMConfig holds the OpenRouter (OpenAI-compatible) gateway configuration
type LLMConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     int // seconds, applied by callers around a whole resolve call
	AppURL      string
	AppTitle    string
	Enabled     bool
}

// PostgreSQLConfig holds the turn log database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// RedisConfig holds the session store configuration
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
	Enabled    bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// ResolverConfig holds filter resolution defaults
type ResolverConfig struct {
	DefaultLocation string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:           cfg.getEnvAsInt("SERVER_PORT", 3001),
		Host:           getEnv("SERVER_HOST", "0.0.0.0"),
		GinMode:        getEnv("GIN_MODE", "release"),
		AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}

	apiKey := getEnv("OPENROUTER_API_KEY", "")
	cfg.LLM = LLMConfig{
		APIKey:      apiKey,
		APIBase:     strings.TrimRight(getEnv("OPENROUTER_API_BASE", "https://openrouter.ai/api/v1"), "/"),
		Model:       getEnv("OPENROUTER_MODEL", "anthropic/claude-3-haiku"),
		Temperature: cfg.getEnvAsFloat("LLM_TEMPERATURE", 0.1),
		MaxTokens:   cfg.getEnvAsInt("LLM_MAX_TOKENS", 1000),
		Timeout:     cfg.getEnvAsInt("LLM_TIMEOUT", 30),
		AppURL:      getEnv("APP_URL", "http://localhost:3001"),
		AppTitle:    getEnv("APP_TITLE", "Coastal Compass"),
		Enabled:     apiKey != "",
	}

	dsn := getEnv("DATABASE_URL", getEnv("PG_DSN", ""))
	pgHost := getEnv("PG_HOST", "")
	cfg.PostgreSQL = PostgreSQLConfig{
		DSN:                dsn,
		Host:               pgHost,
		Port:               cfg.getEnvAsInt("PG_PORT", 5432),
		User:               getEnv("PG_USER", "postgres"),
		Password:           getEnv("PG_PASSWORD", ""),
		Database:           getEnv("PG_DATABASE", "compass"),
		SSLMode:            getEnv("PG_SSLMODE", "disable"),
		MaxConnections:     cfg.getEnvAsInt("PG_MAX_CONNECTIONS", 10),
		MaxIdleConnections: cfg.getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		Enabled:            dsn != "" || pgHost != "",
	}

	redisAddr := getEnv("REDIS_ADDR", "")
	cfg.Redis = RedisConfig{
		Addr:       redisAddr,
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         cfg.getEnvAsInt("REDIS_DB", 0),
		SessionTTL: time.Duration(cfg.getEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		Enabled:    redisAddr != "",
	}

	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	cfg.Resolver = ResolverConfig{
		DefaultLocation: getEnv("DEFAULT_LOCATION", "Aptos, CA"),
	}

	if cfg.LLM.Timeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be positive, got %d", cfg.LLM.Timeout)
	}

	return cfg, nil
}

// LLMTimeout returns the caller-level timeout wrapped around one resolve call
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.Timeout) * time.Second
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (c *Config) getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid integer value for %s, using default %d", key, defaultValue))
		return defaultValue
	}
	return value
}

func (c *Config) getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid float value for %s, using default %f", key, defaultValue))
		return defaultValue
	}
	return value
}
