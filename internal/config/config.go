// Package config loads the YAML configuration with ${ENV} interpolation
// and fail-fast validation of everything the runtime path needs.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the full service configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Webhook WebhookConfig `yaml:"webhook"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Shopify ShopifyConfig `yaml:"shopify"`
	State   StateConfig   `yaml:"state"`
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// WebhookConfig holds the intake server settings.
type WebhookConfig struct {
	// Listen is the HTTP listen address, e.g. ":3000".
	Listen string `yaml:"listen"`

	// Secret is the shared webhook secret used for HMAC verification.
	Secret string `yaml:"secret"`

	// SignatureHeader carries the provider's HMAC signature.
	SignatureHeader string `yaml:"signature_header"`

	// TopicHeader carries the event topic, e.g. "orders/create".
	TopicHeader string `yaml:"topic_header"`

	// MaxBodySize is the maximum request body size in bytes.
	MaxBodySize int64 `yaml:"max_body_size"`

	// WriteAttempts bounds ledger write retries per request.
	WriteAttempts int `yaml:"write_attempts"`

	// RetryBackoff is the initial backoff between write attempts; it
	// doubles after each transient failure.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// SheetsConfig identifies the target spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
}

// ShopifyConfig is only needed by the setup-webhooks command.
type ShopifyConfig struct {
	ShopDomain  string `yaml:"shop_domain"`
	AccessToken string `yaml:"access_token"`
	APIVersion  string `yaml:"api_version"`
	CallbackURL string `yaml:"callback_url"`
}

// StateConfig locates the local delivery journal.
type StateConfig struct {
	Path string `yaml:"path"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Service: ServiceConfig{
			Name:     "orderledger",
			LogLevel: "info",
		},
		Webhook: WebhookConfig{
			Listen:          ":3000",
			SignatureHeader: "X-Shopify-Hmac-Sha256",
			TopicHeader:     "X-Shopify-Topic",
			MaxBodySize:     1048576, // 1 MB
			WriteAttempts:   3,
			RetryBackoff:    500 * time.Millisecond,
		},
		Sheets: SheetsConfig{
			SheetName: "Orders",
		},
		State: StateConfig{
			Path: "./data/orderledger.db",
		},
	}
}

// Load reads and parses configuration from a YAML file. ${VAR} placeholders
// are replaced with environment variable values before parsing; unresolved
// placeholders in required fields fail validation so secrets never slip
// through half-configured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = d.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = d.Service.LogLevel
	}
	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = d.Webhook.Listen
	}
	if cfg.Webhook.SignatureHeader == "" {
		cfg.Webhook.SignatureHeader = d.Webhook.SignatureHeader
	}
	if cfg.Webhook.TopicHeader == "" {
		cfg.Webhook.TopicHeader = d.Webhook.TopicHeader
	}
	if cfg.Webhook.MaxBodySize == 0 {
		cfg.Webhook.MaxBodySize = d.Webhook.MaxBodySize
	}
	if cfg.Webhook.WriteAttempts == 0 {
		cfg.Webhook.WriteAttempts = d.Webhook.WriteAttempts
	}
	if cfg.Webhook.RetryBackoff == 0 {
		cfg.Webhook.RetryBackoff = d.Webhook.RetryBackoff
	}
	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = d.Sheets.SheetName
	}
	if cfg.State.Path == "" {
		cfg.State.Path = d.State.Path
	}
}

// validate checks everything the serve path requires. Setup-only fields
// (shopify.*) are checked by ValidateSetup instead.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if err := requireResolved("webhook.secret", cfg.Webhook.Secret); err != nil {
		return err
	}
	if err := requireResolved("sheets.spreadsheet_id", cfg.Sheets.SpreadsheetID); err != nil {
		return err
	}
	if err := requireResolved("sheets.credentials_file", cfg.Sheets.CredentialsFile); err != nil {
		return err
	}

	if cfg.Webhook.MaxBodySize < 0 {
		return fmt.Errorf("webhook.max_body_size must be positive")
	}
	if cfg.Webhook.WriteAttempts < 1 {
		return fmt.Errorf("webhook.write_attempts must be at least 1")
	}
	if cfg.Webhook.RetryBackoff < 0 {
		return fmt.Errorf("webhook.retry_backoff must not be negative")
	}
	return nil
}

// ValidateSetup checks the fields the setup-webhooks command requires.
func (c *Config) ValidateSetup() error {
	if err := requireResolved("shopify.shop_domain", c.Shopify.ShopDomain); err != nil {
		return err
	}
	if err := requireResolved("shopify.access_token", c.Shopify.AccessToken); err != nil {
		return err
	}
	return requireResolved("shopify.callback_url", c.Shopify.CallbackURL)
}

func requireResolved(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if envVarPattern.MatchString(value) {
		matches := envVarPattern.FindStringSubmatch(value)
		if len(matches) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
		}
		return fmt.Errorf("%s: unresolved environment variable", field)
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (caught by validation if required).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
