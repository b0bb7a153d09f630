package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	History HistoryConfig `mapstructure:"history"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Adapter AdapterConfig `mapstructure:"adapter"`
	Probe   ProbeConfig   `mapstructure:"probe"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig holds workflow history persistence configuration.
type HistoryConfig struct {
	// Enabled turns on archiving of finished workflows to SQLite.
	Enabled bool `mapstructure:"enabled"`

	// DSN is the SQLite database path.
	DSN string `mapstructure:"dsn"`
}

// CatalogConfig holds platform catalog configuration.
type CatalogConfig struct {
	// Path points to a platform catalog YAML file. Empty uses the
	// catalog embedded in the binary.
	Path string `mapstructure:"path"`
}

// EngineConfig holds workflow engine timing configuration.
type EngineConfig struct {
	// ExecutionTimeout caps one workflow run end to end.
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`

	// RetryDelay is the backoff unit between step attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// AdapterConfig selects the platform adapter.
type AdapterConfig struct {
	// Mode determines which adapter performs platform operations.
	// "simulated" - deterministic in-process adapter (development)
	// "digitalocean" - DigitalOcean App Platform
	Mode string `mapstructure:"mode"`

	// DigitalOceanToken is the API token for the digitalocean mode.
	// Set via SABI_ADAPTER_DIGITALOCEAN_TOKEN.
	DigitalOceanToken string `mapstructure:"digitalocean_token"`
}

// ProbeConfig holds post-deploy probe configuration.
type ProbeConfig struct {
	// Timeout is the per-measurement HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", "./data/sabi.db")
	v.SetDefault("catalog.path", "") // Embedded catalog by default
	v.SetDefault("engine.execution_timeout", "30m")
	v.SetDefault("engine.retry_delay", "2s")
	v.SetDefault("adapter.mode", "simulated")
	v.SetDefault("adapter.digitalocean_token", "")
	v.SetDefault("probe.timeout", "15s")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("SABI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyFlags overrides the loaded configuration with command line flag
// values. Flags win over both file and environment sources. Empty values
// leave the configuration untouched.
func (c *Config) ApplyFlags(catalogPath, adapterMode string) error {
	if catalogPath != "" {
		c.Catalog.Path = catalogPath
	}
	if adapterMode != "" {
		c.Adapter.Mode = adapterMode
	}
	return c.validate()
}

func (c *Config) validate() error {
	switch c.Adapter.Mode {
	case "simulated":
	case "digitalocean":
		if c.Adapter.DigitalOceanToken == "" {
			return fmt.Errorf("adapter.digitalocean_token is required for digitalocean mode")
		}
	default:
		return fmt.Errorf("unknown adapter mode: %s", c.Adapter.Mode)
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
