package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Queue     QueueConfig
	API       APIConfig
	Worker    WorkerConfig
	Session   SessionConfig
	Providers []string
	Logging   LoggingConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// QueueConfig holds queue configuration (Redis)
type QueueConfig struct {
	RedisURL  string
	QueueName string
	RetrySet  string
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port          int
	MaxImportSize int64
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	Concurrency   int
	MaxRetryCount int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	PollInterval  time.Duration
	SuccessRate   float64
}

// SessionConfig holds list session storage configuration
type SessionConfig struct {
	Store  string
	TTL    time.Duration
	Prefix string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads variables from .env files when present.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	apiPort, err := getInt("API_PORT", 8080)
	if err != nil {
		return nil, err
	}

	maxImport, err := getInt("MAX_IMPORT_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}

	workerConcurrency, err := getInt("WORKER_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}

	maxRetryCount, err := getInt("MAX_RETRY_COUNT", 3)
	if err != nil {
		return nil, err
	}

	backoffBase, err := getDuration("RETRY_BACKOFF_BASE", 2*time.Second)
	if err != nil {
		return nil, err
	}

	backoffMax, err := getDuration("RETRY_BACKOFF_MAX", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	pollInterval, err := getDuration("RETRY_POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	successRate, err := strconv.ParseFloat(getEnv("SENDER_SUCCESS_RATE", "0.92"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SENDER_SUCCESS_RATE: %w", err)
	}

	sessionTTL, err := getDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "bulksms"),
			Password: getEnv("DB_PASSWORD", "bulksms"),
			DBName:   getEnv("DB_NAME", "bulksms"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Queue: QueueConfig{
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379/0"),
			QueueName: getEnv("QUEUE_NAME", "sms_sends"),
			RetrySet:  getEnv("RETRY_SET_NAME", "sms_sends:retry"),
		},
		API: APIConfig{
			Port:          apiPort,
			MaxImportSize: int64(maxImport),
		},
		Worker: WorkerConfig{
			Concurrency:   workerConcurrency,
			MaxRetryCount: maxRetryCount,
			BackoffBase:   backoffBase,
			BackoffMax:    backoffMax,
			PollInterval:  pollInterval,
			SuccessRate:   successRate,
		},
		Session: SessionConfig{
			Store:  strings.ToLower(getEnv("SESSION_STORE", SessionStoreRedis)),
			TTL:    sessionTTL,
			Prefix: getEnv("SESSION_PREFIX", "list_session:"),
		},
		Providers: splitList(getEnv("SMS_PROVIDERS", "safaricom,airtel,telkom")),
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Session.Store != SessionStoreRedis && c.Session.Store != SessionStoreMemory {
		return fmt.Errorf("invalid SESSION_STORE: %q (must be 'redis' or 'memory')", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("SMS_PROVIDERS must list at least one provider")
	}
	if c.Worker.MaxRetryCount < 0 {
		return fmt.Errorf("MAX_RETRY_COUNT cannot be negative")
	}
	if c.Worker.BackoffBase <= 0 || c.Worker.BackoffMax < c.Worker.BackoffBase {
		return fmt.Errorf("RETRY_BACKOFF_MAX must be >= RETRY_BACKOFF_BASE > 0")
	}
	return nil
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v, err := time.ParseDuration(getEnv(key, defaultValue.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
