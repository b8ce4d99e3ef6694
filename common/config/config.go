package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Upload    UploadConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Probe     ProbeConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
	APIPrefix   string
}

// DatabaseConfig holds MongoDB connection settings
type DatabaseConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// StorageConfig holds local payload storage settings
type StorageConfig struct {
	Root string
}

// UploadConfig holds upload session lifecycle settings
type UploadConfig struct {
	// Retention is how long terminal (complete/error) sessions are kept
	// before the cleanup job deletes them and any remaining staging file.
	Retention time.Duration
	// Timeout is how long a non-terminal session may sit idle before the
	// cleanup job moves it to error and removes its staging file.
	Timeout time.Duration
	// IngestInterval is the poll interval of the ingest worker loop.
	IngestInterval time.Duration
	// CleanupSchedule is a cron expression for the cleanup job.
	CleanupSchedule string
	// MaxChunkRate is the per-user chunk-append limit per minute (0 disables).
	MaxChunkRate int64
}

// AuthConfig holds token settings
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ProbeConfig holds media probe settings
type ProbeConfig struct {
	// FFProbePath overrides PATH discovery of the ffprobe binary.
	FFProbePath string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
			APIPrefix:   getEnv("API_PREFIX", "/api/v0"),
		},
		Database: DatabaseConfig{
			URI:            getEnv("MONGO_DB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DB_NAME", "mdev"),
			ConnectTimeout: getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:    uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 100)),
		},
		Storage: StorageConfig{
			Root: getEnv("LOCAL_STORAGE_DIRECTORY", "./data/files"),
		},
		Upload: UploadConfig{
			Retention:       getEnvDuration("UPLOAD_RETENTION", time.Hour),
			Timeout:         getEnvDuration("UPLOAD_TIMEOUT", time.Hour),
			IngestInterval:  getEnvDuration("INGEST_INTERVAL", time.Second),
			CleanupSchedule: getEnv("UPLOAD_CLEANUP_SCHEDULE", "@every 1m"),
			MaxChunkRate:    int64(getEnvInt("UPLOAD_MAX_CHUNK_RATE", 600)),
		},
		Auth: AuthConfig{
			Secret:   getEnv("AUTH_SECRET", "dev-secret-change-in-prod"),
			Issuer:   getEnv("AUTH_ISSUER", "mserve"),
			TokenTTL: getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Probe: ProbeConfig{
			FFProbePath: getEnv("FFPROBE_PATH", ""),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}

	if c.Storage.Root == "" {
		return fmt.Errorf("storage root is required")
	}

	if c.Upload.Retention <= 0 || c.Upload.Timeout <= 0 {
		return fmt.Errorf("upload retention and timeout must be positive")
	}

	return nil
}

// RedisAddr returns the redis host:port address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
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
