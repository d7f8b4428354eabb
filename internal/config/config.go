// Package config loads Keepsake settings from environment variables with the
// KEEPSAKE_ prefix and sensible defaults. User display settings (name,
// avatar, theme) are not configuration; they live in the preferences store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all settings for the Keepsake application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Preview  PreviewConfig
	Security SecurityConfig
	Backup   BackupConfig
	Features FeaturesConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    // Server port (default: 7575)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains store settings.
type StorageConfig struct {
	Engine   string // Storage engine: sqlite, jsonfile (default: sqlite)
	DataPath string // Path to data directory (default: ./data)
}

// PreviewConfig contains link preview fetcher settings.
type PreviewConfig struct {
	Enabled           bool          // Fetch link metadata on capture (default: true)
	Timeout           time.Duration // Per-fetch timeout (default: 5s)
	RequestsPerSecond float64       // Outbound rate limit (default: 2)
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	Mode     string // Security mode: development, production (default: development)
	APIToken string // Bearer token; required in production mode
}

// BackupConfig contains snapshot settings.
type BackupConfig struct {
	Enabled          bool   // Run the interval snapshot loop (default: false)
	Interval         string // Snapshot interval duration (default: 24h)
	Path             string // Snapshot directory (default: ./backups)
	Verify           bool   // Verify snapshots after creation (default: true)
	RetentionHourly  int    // Hourly snapshots to keep (default: 24)
	RetentionDaily   int    // Daily snapshots to keep (default: 7)
	RetentionWeekly  int    // Weekly snapshots to keep (default: 4)
	RetentionMonthly int    // Monthly snapshots to keep (default: 12)
}

// FeaturesConfig contains feature flags.
type FeaturesConfig struct {
	EnableREST      bool // Serve the REST API (default: true)
	EnableWebsocket bool // Serve the /ws event feed (default: true)
	EnableImport    bool // Allow Markdown import over the API (default: true)
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("KEEPSAKE_PORT", 7575),
			Host: getEnv("KEEPSAKE_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			Engine:   getEnv("KEEPSAKE_STORAGE_ENGINE", "sqlite"),
			DataPath: getEnv("KEEPSAKE_DATA_PATH", "./data"),
		},
		Preview: PreviewConfig{
			Enabled:           getEnvBool("KEEPSAKE_PREVIEW_ENABLED", true),
			Timeout:           getEnvDuration("KEEPSAKE_PREVIEW_TIMEOUT", 5*time.Second),
			RequestsPerSecond: 2,
		},
		Security: SecurityConfig{
			Mode:     getEnv("KEEPSAKE_SECURITY_MODE", "development"),
			APIToken: getEnv("KEEPSAKE_API_TOKEN", ""),
		},
		Backup: BackupConfig{
			Enabled:          getEnvBool("KEEPSAKE_BACKUP_ENABLED", false),
			Interval:         getEnv("KEEPSAKE_BACKUP_INTERVAL", "24h"),
			Path:             getEnv("KEEPSAKE_BACKUP_PATH", "./backups"),
			Verify:           getEnvBool("KEEPSAKE_BACKUP_VERIFY", true),
			RetentionHourly:  getEnvInt("KEEPSAKE_BACKUP_RETENTION_HOURLY", 24),
			RetentionDaily:   getEnvInt("KEEPSAKE_BACKUP_RETENTION_DAILY", 7),
			RetentionWeekly:  getEnvInt("KEEPSAKE_BACKUP_RETENTION_WEEKLY", 4),
			RetentionMonthly: getEnvInt("KEEPSAKE_BACKUP_RETENTION_MONTHLY", 12),
		},
		Features: FeaturesConfig{
			EnableREST:      getEnvBool("KEEPSAKE_ENABLE_REST", true),
			EnableWebsocket: getEnvBool("KEEPSAKE_ENABLE_WS", true),
			EnableImport:    getEnvBool("KEEPSAKE_ENABLE_IMPORT", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that a typo in the environment could break.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "sqlite", "jsonfile":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}

	switch c.Security.Mode {
	case "development":
	case "production":
		if c.Security.APIToken == "" {
			return fmt.Errorf("config: KEEPSAKE_API_TOKEN is required in production mode")
		}
	default:
		return fmt.Errorf("config: unknown security mode %q", c.Security.Mode)
	}

	if _, err := time.ParseDuration(c.Backup.Interval); err != nil {
		return fmt.Errorf("config: invalid backup interval %q: %w", c.Backup.Interval, err)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	return nil
}

// DatabasePath returns the SQLite database file path under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "keepsake.db")
}

// DocumentPath returns the JSON document path under the data dir.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.Storage.DataPath, "keepsake.json")
}

// BackupInterval returns the parsed snapshot interval.
func (c *Config) BackupInterval() time.Duration {
	d, err := time.ParseDuration(c.Backup.Interval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value when unset or unparseable.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable. It recognizes
// true/1/yes and false/0/no in any case, falling back to the default
// otherwise.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a
// default value when unset or unparseable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
