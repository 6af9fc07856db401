// Package config loads and validates the squaresync YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BrandonGoding/squaresync/internal/square"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// AccessToken authenticates against the Square catalog API. The
	// SQUARE_ACCESS_TOKEN environment variable overrides this field, so the
	// token can be kept out of the config file.
	AccessToken string `yaml:"access_token"`

	// Environment selects the API host: "sandbox" or "production".
	// Defaults to sandbox.
	Environment string `yaml:"environment"`

	// Currency is the ISO 4217 code applied to inventory prices ("USD").
	Currency string `yaml:"currency"`

	// RequestTimeout bounds each catalog API call. 1s–60s, default 10s.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// DBPath is the SQLite database file. Defaults to
	// ~/.local/share/squaresync/catalog.db.
	DBPath string `yaml:"db_path"`

	// SyncInterval controls the daemon's polling cadence.
	// Minimum 30s, maximum 24h. Defaults to 15m.
	SyncInterval time.Duration `yaml:"sync_interval"`

	// AdminListen is the listen address of the admin API in daemon mode,
	// e.g. "127.0.0.1:8642". Empty disables the admin server.
	AdminListen string `yaml:"admin_listen"`

	// MembershipCategory names the catalog category membership items are
	// filed under. Empty leaves memberships uncategorized.
	MembershipCategory string `yaml:"membership_category"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "squaresync".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment
	// variable. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/squaresync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "squaresync", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
// SQUARE_ACCESS_TOKEN, when set, overrides the file's access token.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if token := os.Getenv("SQUARE_ACCESS_TOKEN"); token != "" {
		cfg.AccessToken = token
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required fields are present and well-formed, and
// fills in defaults.
func (c *Config) validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access_token is required (or set SQUARE_ACCESS_TOKEN)")
	}

	if c.Environment == "" {
		c.Environment = square.EnvSandbox
	}
	if c.Environment != square.EnvSandbox && c.Environment != square.EnvProduction {
		return fmt.Errorf("environment %q must be %q or %q", c.Environment, square.EnvSandbox, square.EnvProduction)
	}

	if c.Currency == "" {
		c.Currency = "USD"
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("currency %q must be a 3-letter ISO 4217 code", c.Currency)
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.RequestTimeout < time.Second || c.RequestTimeout > time.Minute {
		return fmt.Errorf("request_timeout %v must be between 1s and 60s", c.RequestTimeout)
	}

	if c.SyncInterval == 0 {
		c.SyncInterval = 15 * time.Minute
	}
	if c.SyncInterval < 30*time.Second {
		return fmt.Errorf("sync_interval %v is too short (minimum 30s)", c.SyncInterval)
	}
	if c.SyncInterval > 24*time.Hour {
		return fmt.Errorf("sync_interval %v is too long (maximum 24h)", c.SyncInterval)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
