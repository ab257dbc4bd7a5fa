// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// StoreConfig selects and configures the profile persistence backend.
type StoreConfig struct {
	// Backend is either "file" or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Directory holds per-account profile files for the file backend.
	// Empty means ~/.rocinante/profiles.
	Directory string `mapstructure:"directory" yaml:"directory"`
	// PostgresURL is the connection string for the postgres backend.
	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url"`
}

// EngineConfig tunes the session engine.
type EngineConfig struct {
	// AccountHash identifies the persona. "default" never persists.
	AccountHash string `mapstructure:"account_hash" yaml:"account_hash"`
	// AccountType is NORMAL, IRONMAN or HARDCORE_IRONMAN.
	AccountType string `mapstructure:"account_type" yaml:"account_type"`
	// TickInterval is the length of one logical game step.
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	// SessionLength bounds a simulate run; zero means run until signalled.
	SessionLength time.Duration `mapstructure:"session_length" yaml:"session_length"`
	// JitterEnabled toggles per-action delay synthesis.
	JitterEnabled bool `mapstructure:"jitter_enabled" yaml:"jitter_enabled"`
	// InefficiencyEnabled toggles stochastic mistake injection.
	InefficiencyEnabled bool `mapstructure:"inefficiency_enabled" yaml:"inefficiency_enabled"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "rocinante")
	v.SetDefault("logger.log_file", "rocinante.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Store --
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.directory", "")
	v.SetDefault("store.postgres_url", "")

	// -- Engine --
	v.SetDefault("engine.account_hash", "default")
	v.SetDefault("engine.account_type", "NORMAL")
	v.SetDefault("engine.tick_interval", 600*time.Millisecond)
	v.SetDefault("engine.session_length", time.Duration(0))
	v.SetDefault("engine.jitter_enabled", true)
	v.SetDefault("engine.inefficiency_enabled", true)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; a failure here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment, not the config file.
	v.BindEnv("store.postgres_url", "ROCINANTE_STORE_POSTGRES_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"file\" or \"postgres\", got %q", c.Store.Backend)
	}

	switch strings.ToUpper(c.Engine.AccountType) {
	case "NORMAL", "IRONMAN", "HARDCORE_IRONMAN":
	default:
		return fmt.Errorf("engine.account_type must be NORMAL, IRONMAN or HARDCORE_IRONMAN, got %q", c.Engine.AccountType)
	}

	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be a positive duration")
	}
	if c.Engine.AccountHash == "" {
		return fmt.Errorf("engine.account_hash must not be empty")
	}
	return nil
}
