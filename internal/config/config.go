// ABOUTME: Configuration loading and parsing for shortline
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete shortline configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig holds conversation session configuration
type SessionConfig struct {
	TTL time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// DedupeConfig holds inbound delivery-attempt dedupe configuration
type DedupeConfig struct {
	TTL     time.Duration `yaml:"-"`
	MaxSize int           `yaml:"max_size"`

	TTLRaw string `yaml:"ttl"`
}

// WebhookConfig holds inbound webhook validation configuration.
// An empty secret disables validation.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// GatewayConfig holds outbound SMS delivery configuration
type GatewayConfig struct {
	Provider string             `yaml:"provider"` // "twilio" or "webhook"
	Twilio   TwilioConfig       `yaml:"twilio"`
	Outbound OutboundHookConfig `yaml:"outbound"`
}

// TwilioConfig holds Twilio carrier API credentials
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

// OutboundHookConfig holds generic HTTP webhook-out delivery configuration
type OutboundHookConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the config file leaves a field unset.
const (
	DefaultSessionTTL = time.Hour
	DefaultDedupeTTL  = 10 * time.Minute
	DefaultDedupeSize = 10000
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Gateway.Provider {
	case "twilio":
		if c.Gateway.Twilio.AccountSID == "" || c.Gateway.Twilio.AuthToken == "" {
			return fmt.Errorf("gateway.twilio.account_sid and auth_token are required for the twilio provider")
		}
		if c.Gateway.Twilio.From == "" {
			return fmt.Errorf("gateway.twilio.from is required for the twilio provider")
		}
	case "webhook":
		if c.Gateway.Outbound.URL == "" {
			return fmt.Errorf("gateway.outbound.url is required for the webhook provider")
		}
	case "":
		return fmt.Errorf("gateway.provider is required (twilio or webhook)")
	default:
		return fmt.Errorf("unknown gateway.provider %q (want twilio or webhook)", c.Gateway.Provider)
	}

	return nil
}

// applyDefaults fills in defaults for optional fields
func (c *Config) applyDefaults() {
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Dedupe.TTL == 0 {
		c.Dedupe.TTL = DefaultDedupeTTL
	}
	if c.Dedupe.MaxSize == 0 {
		c.Dedupe.MaxSize = DefaultDedupeSize
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.TTLRaw != "" {
		cfg.Session.TTL, err = time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.ttl %q: %w", cfg.Session.TTLRaw, err)
		}
	}

	if cfg.Dedupe.TTLRaw != "" {
		cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe.ttl %q: %w", cfg.Dedupe.TTLRaw, err)
		}
	}

	return nil
}
