// ABOUTME: Configuration loading and parsing for loyalty-form
// ABOUTME: Supports YAML or TOML files with env var expansion, env overrides and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Environment names recognized by Config.IsProduction.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// DefaultLoyaltyGroupID is the discount group users are enrolled in.
const DefaultLoyaltyGroupID = 46

// Config represents the complete loyalty-form configuration
type Config struct {
	Environment string           `yaml:"environment" toml:"environment" env:"LOYALTY_ENV"`
	Server      ServerConfig     `yaml:"server" toml:"server"`
	Tailscale   TailscaleConfig  `yaml:"tailscale" toml:"tailscale"`
	Database    DatabaseConfig   `yaml:"database" toml:"database"`
	Auth        AuthConfig       `yaml:"auth" toml:"auth"`
	Upstream    UpstreamConfig   `yaml:"upstream" toml:"upstream"`
	Enrichment  EnrichmentConfig `yaml:"enrichment" toml:"enrichment"`
	Branding    BrandingConfig   `yaml:"branding" toml:"branding"`
	Logging     LoggingConfig    `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"LOYALTY_HTTP_ADDR"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // Serve HTTPS with Tailscale certs on :443
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Public Funnel, so the vendor webview can reach the form
}

// DatabaseConfig holds the logo store location
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"LOYALTY_DB_PATH"`
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	// JWTSecret is the vendor's HS256 secret, usually base64 encoded.
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret" env:"JWT_SECRET"`
}

// UpstreamConfig describes the third-party loyalty API
type UpstreamConfig struct {
	BaseURL  string  `yaml:"base_url" toml:"base_url" env:"API_BASE_URL"`
	APIToken string  `yaml:"api_token" toml:"api_token" env:"API_TOKEN"`
	GroupIDs []int64 `yaml:"group_ids" toml:"group_ids"`

	// Timeout of zero leaves the HTTP client without a deadline.
	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// EnrichmentConfig controls the first-name lookup for tokens without one
type EnrichmentConfig struct {
	Disabled      bool          `yaml:"disabled" toml:"disabled"`
	CacheTTL      time.Duration `yaml:"-" toml:"-"`
	CacheTTLRaw   string        `yaml:"cache_ttl" toml:"cache_ttl"`
	CacheMaxUsers int           `yaml:"cache_max_users" toml:"cache_max_users"`
}

// BrandingConfig controls which logo the form shows
type BrandingConfig struct {
	DefaultLogoURL string     `yaml:"default_logo_url" toml:"default_logo_url"`
	Rules          []LogoRule `yaml:"rules" toml:"rules"`
	// AdminPasswordHash is a bcrypt hash guarding logo writes. Empty disables writes.
	AdminPasswordHash string `yaml:"admin_password_hash" toml:"admin_password_hash" env:"LOYALTY_ADMIN_PASSWORD_HASH"`
	// PublicURL is used when printing sample links.
	PublicURL string `yaml:"public_url" toml:"public_url" env:"LOYALTY_PUBLIC_URL"`
}

// LogoRule picks a logo for a charging station
type LogoRule struct {
	EVSEID                string `yaml:"evse_id" toml:"evse_id"`
	EVSEReferenceContains string `yaml:"evse_reference_contains" toml:"evse_reference_contains"`
	LogoURL               string `yaml:"logo_url" toml:"logo_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LOYALTY_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"LOYALTY_LOG_FORMAT"`
}

// DefaultLogoURL is shown when neither a rule nor a stored logo applies.
const DefaultLogoURL = "https://play-lh.googleusercontent.com/-myH_Ievhf2k5S-JCRTqxJmmh_LmYgJ9rBB6L9z4aS64tKb07TkaVAszPFmXinbtJSQ=w7680-h4320-rw"

// Default returns a development configuration with no file involved.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server:      ServerConfig{HTTPAddr: "localhost:3000"},
		Database:    DatabaseConfig{Path: defaultDatabasePath()},
		Upstream:    UpstreamConfig{GroupIDs: []int64{DefaultLoyaltyGroupID}},
		Enrichment:  EnrichmentConfig{CacheMaxUsers: 10_000},
		Branding:    BrandingConfig{DefaultLogoURL: DefaultLogoURL},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// well-known variables (JWT_SECRET, API_BASE_URL, ...) override file values.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, expandEnvVars(string(data)), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	applyLegacyEnv(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path, content string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(content, cfg)
		return err
	}
	return yaml.Unmarshal([]byte(content), cfg)
}

// applyLegacyEnv honors the VITE_-prefixed names the vendor deployment still sets.
func applyLegacyEnv(cfg *Config) {
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("VITE_JWT_SECRET")
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = os.Getenv("VITE_API_BASE_URL")
	}
	if cfg.Upstream.APIToken == "" {
		cfg.Upstream.APIToken = os.Getenv("VITE_API_TOKEN")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}
	if len(cfg.Upstream.GroupIDs) == 0 {
		cfg.Upstream.GroupIDs = []int64{DefaultLoyaltyGroupID}
	}
	if cfg.Branding.DefaultLogoURL == "" {
		cfg.Branding.DefaultLogoURL = DefaultLogoURL
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath()
	}
	cfg.Upstream.BaseURL = strings.TrimRight(cfg.Upstream.BaseURL, "/")
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

// IsProduction reports whether unverified token decoding must stay disabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}

	if c.Upstream.BaseURL != "" {
		u, err := url.Parse(c.Upstream.BaseURL)
		if err != nil {
			return fmt.Errorf("upstream.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("upstream.base_url must use http or https scheme")
		}
	}

	if len(c.Upstream.GroupIDs) == 0 {
		return fmt.Errorf("upstream.group_ids must not be empty")
	}

	for i, rule := range c.Branding.Rules {
		if rule.LogoURL == "" {
			return fmt.Errorf("branding.rules[%d].logo_url is required", i)
		}
		if rule.EVSEID == "" && rule.EVSEReferenceContains == "" {
			return fmt.Errorf("branding.rules[%d] needs evse_id or evse_reference_contains", i)
		}
	}

	if c.Enrichment.CacheTTL < 0 {
		return fmt.Errorf("enrichment.cache_ttl must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Upstream.TimeoutRaw != "" {
		cfg.Upstream.Timeout, err = time.ParseDuration(cfg.Upstream.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing upstream.timeout %q: %w", cfg.Upstream.TimeoutRaw, err)
		}
	}

	if cfg.Enrichment.CacheTTLRaw != "" {
		cfg.Enrichment.CacheTTL, err = time.ParseDuration(cfg.Enrichment.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing enrichment.cache_ttl %q: %w", cfg.Enrichment.CacheTTLRaw, err)
		}
	}

	return nil
}

// ConfigPath returns the path to the config file.
// Priority: LOYALTY_CONFIG env var > XDG_CONFIG_HOME/loyalty-form/config.yaml > ~/.config/loyalty-form/config.yaml
func ConfigPath() string {
	if envPath := os.Getenv("LOYALTY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "loyalty-form", "config.yaml")
}

// defaultDatabasePath returns XDG_DATA_HOME/loyalty-form/logos.db or ~/.local/share/loyalty-form/logos.db
func defaultDatabasePath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("data", "logos.db")
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "loyalty-form", "logos.db")
}
