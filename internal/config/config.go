// ABOUTME: Configuration loading and parsing for relay-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete relay-gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Platform   PlatformConfig   `yaml:"platform"`
	LLM        LLMConfig        `yaml:"llm"`
	Automation AutomationConfig `yaml:"automation"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Database   DatabaseConfig   `yaml:"database"`
	DevUI      DevUIConfig      `yaml:"devui"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration.
// Funnel exposes the webhook endpoint over public HTTPS so the messaging
// platform can reach it without a reverse proxy.
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	Funnel    bool   `yaml:"funnel"`
}

// PlatformConfig holds the messaging platform integration configuration
type PlatformConfig struct {
	// SendURL is the platform endpoint for outbound messages
	SendURL string `yaml:"send_url"`
	// Token authenticates outbound sends (Authorization: Bearer)
	Token string `yaml:"token"`
	// WebhookSecret is the shared secret for inbound HMAC signature checks.
	// Empty disables verification (local development only).
	WebhookSecret string `yaml:"webhook_secret"`
}

// LLMConfig holds the AI responder configuration
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AutomationConfig holds the automation webhook configuration
type AutomationConfig struct {
	// WebhookURL receives dispatched action payloads (e.g. email.send)
	WebhookURL string `yaml:"webhook_url"`
	Token      string `yaml:"token"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// SessionsConfig holds conversation session configuration
type SessionsConfig struct {
	// Expiry is the inactivity window after which a session is discarded
	Expiry time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	ExpiryRaw string `yaml:"expiry"`
}

// DatabaseConfig holds transcript store configuration.
// Driver selects the backend: "sqlite", "postgres", or "none".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // sqlite file path
	DSN    string `yaml:"dsn"`  // postgres connection string
}

// DevUIConfig holds the developer test page configuration
type DevUIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSessionExpiry is the inactivity window used when sessions.expiry is unset.
const DefaultSessionExpiry = 10 * time.Minute

// DefaultAutomationTimeout bounds automation webhook calls when automation.timeout is unset.
const DefaultAutomationTimeout = 15 * time.Second

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in defaults for optional fields.
func (c *Config) applyDefaults() {
	if c.Sessions.Expiry == 0 {
		c.Sessions.Expiry = DefaultSessionExpiry
	}
	if c.Automation.Timeout == 0 {
		c.Automation.Timeout = DefaultAutomationTimeout
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Platform.SendURL == "" {
		return fmt.Errorf("platform.send_url is required")
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case "none":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres, or none (got %q)", c.Database.Driver)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Sessions.ExpiryRaw != "" {
		cfg.Sessions.Expiry, err = time.ParseDuration(cfg.Sessions.ExpiryRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.expiry %q: %w", cfg.Sessions.ExpiryRaw, err)
		}
	}

	if cfg.Automation.TimeoutRaw != "" {
		cfg.Automation.Timeout, err = time.ParseDuration(cfg.Automation.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing automation.timeout %q: %w", cfg.Automation.TimeoutRaw, err)
		}
	}

	return nil
}
