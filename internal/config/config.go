// Package config loads and validates the firm-finder configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the SRA_ prefix (e.g., SRA_SERVER_PORT
// overrides server.port in the YAML). The same binary therefore runs with a
// config.yaml in local development and with pure environment variables on a
// PaaS — no recompilation needed.
//
// The upstream subscription key may also be supplied as the bare SRA_API_KEY
// variable because hosting dashboards and secret managers inject it under that
// name without knowing the application's nested key scheme.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is constructed once at process
// start and passed by reference into the components that need it; nothing
// mutates it afterwards.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// UpstreamConfig holds the SRA datashare API connection settings.
//
// Hosts is an ordered fallback list: the first host is tried first on every
// request, and later entries are only used when earlier ones fail. The two
// published endpoints have historically differed in DNS/TLS reliability from
// some networks, so both are configured by default.
type UpstreamConfig struct {
	// APIKey is the Ocp-Apim-Subscription-Key value. Required; the process
	// refuses to start without it.
	APIKey string `mapstructure:"api_key"`
	// Hosts are candidate base URLs tried in priority order.
	Hosts []string `mapstructure:"hosts"`
	// Timeout applies per HTTP attempt, not across the whole fallback sequence.
	Timeout time.Duration `mapstructure:"timeout"`
	// ProbeTimeout is the shorter per-host timeout used by the /probe diagnostic.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration. The default allows all origins, a
// deliberate simplification for the testing deployment; tighten allowed_origins
// to the frontend domain in production.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// bindEnvVars explicitly binds environment variables to config keys. This is
// necessary because AutomaticEnv() doesn't work well with nested structs during
// Unmarshal. Every key is a non-empty hardcoded string, so a BindEnv error
// indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",

		// Upstream
		"upstream.api_key",
		"upstream.hosts",
		"upstream.timeout",
		"upstream.probe_timeout",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sra-finder")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("SRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Infrastructure tooling injects the subscription key as a bare SRA_API_KEY;
	// accept it when the nested key is unset.
	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = os.Getenv("SRA_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Upstream defaults. azure-api.net DNS has been flaky from some hosting
	// networks, so the microsites endpoint is tried first.
	v.SetDefault("upstream.hosts", []string{
		"https://sra-prod-api.microsites.uk/datashare/api/v1",
		"https://sra-prod-api.azure-api.net/datashare/api/v1",
	})
	v.SetDefault("upstream.timeout", "20s")
	v.SetDefault("upstream.probe_timeout", "10s")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "OPTIONS"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Upstream.APIKey == "" {
		return fmt.Errorf("upstream.api_key is required (set SRA_UPSTREAM_API_KEY or SRA_API_KEY)")
	}
	if len(c.Upstream.Hosts) == 0 {
		return fmt.Errorf("upstream.hosts must list at least one base URL")
	}
	for _, h := range c.Upstream.Hosts {
		if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
			return fmt.Errorf("upstream host %q must be an http(s) base URL", h)
		}
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Upstream.ProbeTimeout <= 0 {
		return fmt.Errorf("upstream.probe_timeout must be positive, got %s", c.Upstream.ProbeTimeout)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
