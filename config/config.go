package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPaths are tried in order; the first readable file wins. Variables
// already present in the environment are never overridden.
var envPaths = []string{
	".env",
	"../.env",
	"/app/.env", // Docker
}

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	AI         AIConfig
	Events     EventsConfig
	Moderation ModerationConfig
	Jobs       JobsConfig

	// EnvFile is the .env file that was loaded, if any
	EnvFile string
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	RequestTimeout          time.Duration
	GracefulShutdownTimeout time.Duration
	AllowedOrigins          []string
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type RateLimitConfig struct {
	// RequestsPerMinute applies per client to every route
	RequestsPerMinute int
	// AIRequestsPerMinute applies per client to /v1/ai routes and is
	// enforced in Redis when configured
	AIRequestsPerMinute int
}

type AIConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Timeout            time.Duration
	RequestsPerSecond  float64
	MaxConcurrent      int
}

type EventsConfig struct {
	NATSURL    string
	ClientName string
}

// JobsConfig controls the background workers started by serve
type JobsConfig struct {
	// ReportTTL is how long a report may stay pending before it expires.
	// Zero disables expiry.
	ReportTTL          time.Duration
	ExpiryInterval     time.Duration
	UsageFlushInterval time.Duration
	RetryDelay         time.Duration
}

type ModerationConfig struct {
	Header    string
	KeyHashes []string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	envFile := loadEnvFile()

	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			RequestTimeout:          getEnvDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:          getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
			AIRequestsPerMinute: getEnvInt("AI_RATE_LIMIT_PER_MINUTE", 20),
		},
		AI: AIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:              getEnv("AI_MODEL", "gpt-4o-mini"),
			TranscriptionModel: getEnv("AI_TRANSCRIPTION_MODEL", "whisper-1"),
			Timeout:            getEnvDuration("AI_TIMEOUT", 10*time.Second),
			RequestsPerSecond:  getEnvFloat("AI_REQUESTS_PER_SECOND", 5.0),
			MaxConcurrent:      getEnvInt("AI_MAX_CONCURRENT", 4),
		},
		Events: EventsConfig{
			NATSURL:    getEnv("NATS_URL", ""),
			ClientName: getEnv("NATS_CLIENT_NAME", "protectlife-api"),
		},
		Moderation: ModerationConfig{
			Header:    getEnv("MODERATOR_KEY_HEADER", "X-Moderator-Key"),
			KeyHashes: getEnvList("MODERATOR_KEY_HASHES", nil),
		},
		Jobs: JobsConfig{
			ReportTTL:          getEnvDuration("REPORT_TTL", 72*time.Hour),
			ExpiryInterval:     getEnvDuration("REPORT_EXPIRY_INTERVAL", 15*time.Minute),
			UsageFlushInterval: getEnvDuration("USAGE_FLUSH_INTERVAL", 5*time.Minute),
			RetryDelay:         getEnvDuration("JOB_RETRY_DELAY", 30*time.Second),
		},
		EnvFile: envFile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database min connections (%d) exceeds max (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.AI.MaxConcurrent < 1 {
		return fmt.Errorf("AI max concurrent requests must be at least 1")
	}
	if c.AI.RequestsPerSecond < 0 {
		return fmt.Errorf("AI requests per second must not be negative")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.AIRequestsPerMinute < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.Jobs.ReportTTL < 0 {
		return fmt.Errorf("report TTL must not be negative")
	}
	if c.Jobs.ExpiryInterval <= 0 || c.Jobs.UsageFlushInterval <= 0 {
		return fmt.Errorf("job intervals must be positive")
	}
	return nil
}

func loadEnvFile() string {
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
