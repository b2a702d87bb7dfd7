package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"excelviz/internal/charting"
	"excelviz/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Charts   ChartsConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	GinMode     string
	CORSOrigins []string
}

// DatabaseConfig holds database connection settings. An empty URL selects the
// filesystem settings store.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// Enabled reports whether settings are kept in PostgreSQL
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// StorageConfig holds file system paths
type StorageConfig struct {
	Dir         string
	UploadDir   string
	MaxUploadMB int
}

// MaxUploadBytes returns the upload limit in bytes
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// ChartsConfig holds workspace and rendering settings
type ChartsConfig struct {
	DefaultTheme  string
	SettleTimeout time.Duration
	SessionTTL    time.Duration
	SweepInterval time.Duration
	ImageWidth    int
	ImageHeight   int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Database: *loadDatabaseConfig(),
		Storage:  *loadStorageConfig(),
		Charts:   *loadChartsConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "debug"),
		CORSOrigins: getEnvListOrDefault("CORS_ORIGINS", []string{"*"}),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
	}
}

func loadStorageConfig() *StorageConfig {
	dir := getEnvOrDefault("STORAGE_DIR", "./user_projects")
	return &StorageConfig{
		Dir:         dir,
		UploadDir:   getEnvOrDefault("UPLOAD_DIR", dir+"/uploads"),
		MaxUploadMB: getEnvIntOrDefault("MAX_UPLOAD_MB", 32),
	}
}

func loadChartsConfig() *ChartsConfig {
	return &ChartsConfig{
		DefaultTheme:  getEnvOrDefault("DEFAULT_THEME", "default"),
		SettleTimeout: getEnvDurationOrDefault("RESTORE_SETTLE_TIMEOUT", 5*time.Second),
		SessionTTL:    getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
		SweepInterval: getEnvDurationOrDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		ImageWidth:    getEnvIntOrDefault("CHART_WIDTH", 800),
		ImageHeight:   getEnvIntOrDefault("CHART_HEIGHT", 480),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Storage.Dir == "" {
		return errors.ConfigInvalid("storage directory is required")
	}
	if config.Storage.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if _, err := charting.ParseTheme(config.Charts.DefaultTheme); err != nil {
		return errors.ConfigInvalid("DEFAULT_THEME must be one of default, pastel, neon, dark")
	}
	if config.Charts.SettleTimeout <= 0 {
		return errors.ConfigInvalid("RESTORE_SETTLE_TIMEOUT must be positive")
	}
	if config.Charts.SessionTTL <= 0 || config.Charts.SweepInterval <= 0 {
		return errors.ConfigInvalid("session TTL and sweep interval must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
