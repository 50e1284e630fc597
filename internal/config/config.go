// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // from SERVER_TIMEOUT_SECONDS

	// Relational store
	DBSource          string        `mapstructure:"DB_SOURCE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // from DB_CONN_MAX_LIFETIME_MINUTES
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration. The service account key is the privileged credential and
	// stays on the server; the web API key is public and is handed to browsers.
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseWebAPIKey             string `mapstructure:"FIREBASE_WEB_API_KEY"`

	// Elasticsearch Configuration (empty URL disables the profile directory index)
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	// Cron Jobs
	ProfileReconcileJobSchedule string `mapstructure:"PROFILE_RECONCILE_JOB_SCHEDULE"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	// AutomaticEnv only resolves keys viper already knows about, so required keys
	// get an empty default.
	v.SetDefault("DB_SOURCE", "")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "") // Optional, inferred from the key file when empty
	v.SetDefault("FIREBASE_WEB_API_KEY", "")

	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("PROFILE_RECONCILE_JOB_SCHEDULE", "@hourly")
}

// MissingRequired returns the environment names of required connection values that are unset.
func (c *Config) MissingRequired() []string {
	if c == nil {
		return []string{"DB_SOURCE", "FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "FIREBASE_WEB_API_KEY"}
	}
	var missing []string
	if strings.TrimSpace(c.DBSource) == "" {
		missing = append(missing, "DB_SOURCE")
	}
	if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
		missing = append(missing, "FIREBASE_SERVICE_ACCOUNT_KEY_PATH")
	}
	if strings.TrimSpace(c.FirebaseWebAPIKey) == "" {
		missing = append(missing, "FIREBASE_WEB_API_KEY")
	}
	return missing
}

// Validate fails fast on missing or unusable required settings.
func (c *Config) Validate() error {
	if missing := c.MissingRequired(); len(missing) > 0 {
		return fmt.Errorf("FATAL: required configuration not set: %s", strings.Join(missing, ", "))
	}
	if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
	}
	return nil
}
