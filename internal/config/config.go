package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Storage  StorageConfig
	Media    MediaConfig
	Audit    AuditConfig
	Progress ProgressConfig
	Server   ServerConfig
}

// StorageConfig holds target-store configuration
type StorageConfig struct {
	Type        string // "sqlite", "postgresql"
	SQLitePath  string
	PostgresURI string
}

// MediaConfig holds local media storage configuration
type MediaConfig struct {
	Dir        string // filesystem root for rehosted assets
	PublicBase string // URL prefix rewritten into content
	Timeout    time.Duration
}

// AuditConfig holds configuration for intermediate-document audit artifacts
type AuditConfig struct {
	Dir        string
	MongoDBURI string // optional; when set, artifacts are mirrored to MongoDB
	Database   string
}

// ProgressConfig holds the progress snapshot file location
type ProgressConfig struct {
	FilePath string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int
	MaxUploadSize int64
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Type:        getEnv("STORAGE_TYPE", "sqlite"),
			SQLitePath:  getEnv("SQLITE_PATH", "migration.db"),
			PostgresURI: getEnv("POSTGRES_URI", ""),
		},
		Media: MediaConfig{
			Dir:        getEnv("MEDIA_DIR", "media"),
			PublicBase: getEnv("MEDIA_PUBLIC_BASE", "/images"),
			Timeout:    getEnvDuration("MEDIA_TIMEOUT", 30*time.Second),
		},
		Audit: AuditConfig{
			Dir:        getEnv("AUDIT_DIR", "audit"),
			MongoDBURI: getEnv("MONGODB_URI", ""),
			Database:   getEnv("MONGODB_DATABASE", "cms_migration"),
		},
		Progress: ProgressConfig{
			FilePath: getEnv("PROGRESS_FILE", "import_progress.json"),
		},
		Server: ServerConfig{
			Port:          getEnvInt("SERVER_PORT", 8080),
			MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_MB", 64)) << 20,
		},
	}

	return cfg, nil
}

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
