package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML/JSON keys to Go struct fields.
// It is loaded once at startup and passed explicitly into every service constructor.
type Config struct {
	// App holds process-wide settings used by the logger
	App struct {
		Env  string `mapstructure:"env"`  // "development" or "production"
		Name string `mapstructure:"name"` // Service name attached to every log line
	} `mapstructure:"app"`

	// Server configuration section containing HTTP server settings
	Server struct {
		Port               int    `mapstructure:"port"`                  // HTTP server port (default: 8080)
		BaseURL            string `mapstructure:"base_url"`              // Base URL for generating short links
		RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"` // Requests per IP per minute, 0 disables
	} `mapstructure:"server"`

	// Database configuration section
	Database struct {
		Driver string `mapstructure:"driver"` // "sqlite" (default) or "postgres"
		Name   string `mapstructure:"name"`   // SQLite database file name
		DSN    string `mapstructure:"dsn"`    // Postgres connection string
	} `mapstructure:"database"`

	// Scans configures the asynchronous scan-session workers
	Scans struct {
		BufferSize  int `mapstructure:"buffer_size"`  // Size of the scan event channel buffer
		WorkerCount int `mapstructure:"worker_count"` // Number of worker goroutines writing scan sessions
	} `mapstructure:"scans"`

	// Attribution bounds how old an open scan session may be and still be claimed by a lead
	Attribution struct {
		Window time.Duration `mapstructure:"window"`
	} `mapstructure:"attribution"`

	// Gateway is the external messaging system that delivers bulk messages
	Gateway struct {
		URL              string        `mapstructure:"url"`               // Outbound gateway endpoint, required for dispatch
		CallbackURL      string        `mapstructure:"callback_url"`      // Delivery webhook URL handed to the gateway
		Timeout          time.Duration `mapstructure:"timeout"`           // Per-request timeout
		FailureThreshold uint32        `mapstructure:"failure_threshold"` // Consecutive failures before the breaker opens
	} `mapstructure:"gateway"`

	// Metrics configures the dashboard aggregator
	Metrics struct {
		EnrolledStatusID string `mapstructure:"enrolled_status_id"` // LeadStatus id counted as enrolled
	} `mapstructure:"metrics"`

	// Monitor configuration for the stale recipient sweep
	Monitor struct {
		IntervalMinutes   int `mapstructure:"interval_minutes"`    // Interval in minutes between sweeps
		StaleAfterMinutes int `mapstructure:"stale_after_minutes"` // Age after which a pending recipient is reported
	} `mapstructure:"monitor"`

	// Tracking configures identifier generation
	Tracking struct {
		NodeID int64 `mapstructure:"node_id"` // Snowflake node id, unique per running instance
	} `mapstructure:"tracking"`
}

// CallbackURL returns the delivery webhook URL announced to the gateway.
// An explicit gateway.callback_url wins over the one derived from server.base_url.
func (c *Config) CallbackURL() string {
	if c.Gateway.CallbackURL != "" {
		return c.Gateway.CallbackURL
	}
	return strings.TrimRight(c.Server.BaseURL, "/") + "/api/v1/webhooks/delivery"
}

// SetDefaults registers the default value of every configuration key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "scanlead")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.rate_limit_per_minute", 600)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.name", "scanlead.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("scans.buffer_size", 1000)
	v.SetDefault("scans.worker_count", 5)
	v.SetDefault("attribution.window", 24*time.Hour)
	v.SetDefault("gateway.url", "")
	v.SetDefault("gateway.callback_url", "")
	v.SetDefault("gateway.timeout", 15*time.Second)
	v.SetDefault("gateway.failure_threshold", 5)
	v.SetDefault("metrics.enrolled_status_id", "")
	v.SetDefault("monitor.interval_minutes", 5)
	v.SetDefault("monitor.stale_after_minutes", 60)
	v.SetDefault("tracking.node_id", 1)
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and YAML configuration files.
// Returns a populated Config struct or an error if configuration loading fails.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Replace dots with underscores in environment variable names
	// e.g., "gateway.url" becomes "GATEWAY_URL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.AddConfigPath("./configs")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is not fatal, defaults and env still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using default values")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
