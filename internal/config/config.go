// Package config resolves server configuration from an optional YAML file
// and environment variables, with env taking precedence. Validation runs
// before any client is constructed; a malformed configuration is fatal at
// startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL  string
	Username string
	Password string
	APIToken string

	AllowHTTP     bool
	TLSSkipVerify bool

	RateLimit float64
	RateBurst int
	CacheTTL  time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	LogLevel string
}

// HasStaticToken reports whether the pre-shared secret mode is configured.
func (c *Config) HasStaticToken() bool { return c.APIToken != "" }

func Default() *Config {
	return &Config{
		RateLimit:      10.0,
		RateBurst:      10,
		CacheTTL:       60 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  30 * time.Second,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   5 * time.Second,
		LogLevel:       "info",
	}
}

// Load resolves configuration: defaults, then the YAML file at path (when
// non-empty), then environment variables, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with YAML-friendly types; durations are Go
// duration strings.
type fileConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	APIToken       string   `yaml:"api_token"`
	AllowHTTP      *bool    `yaml:"allow_http"`
	TLSSkipVerify  *bool    `yaml:"tls_skip_verify"`
	RateLimit      *float64 `yaml:"rate_limit"`
	RateBurst      *int     `yaml:"rate_burst"`
	CacheTTL       string   `yaml:"cache_ttl"`
	MaxRetries     *int     `yaml:"max_retries"`
	RetryBaseDelay string   `yaml:"retry_base_delay"`
	RetryMaxDelay  string   `yaml:"retry_max_delay"`
	ConnectTimeout string   `yaml:"connect_timeout"`
	ReadTimeout    string   `yaml:"read_timeout"`
	WriteTimeout   string   `yaml:"write_timeout"`
	LogLevel       string   `yaml:"log_level"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.Username != "" {
		c.Username = fc.Username
	}
	if fc.Password != "" {
		c.Password = fc.Password
	}
	if fc.APIToken != "" {
		c.APIToken = fc.APIToken
	}
	if fc.AllowHTTP != nil {
		c.AllowHTTP = *fc.AllowHTTP
	}
	if fc.TLSSkipVerify != nil {
		c.TLSSkipVerify = *fc.TLSSkipVerify
	}
	if fc.RateLimit != nil {
		c.RateLimit = *fc.RateLimit
	}
	if fc.RateBurst != nil {
		c.RateBurst = *fc.RateBurst
	}
	if fc.MaxRetries != nil {
		c.MaxRetries = *fc.MaxRetries
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"cache_ttl", fc.CacheTTL, &c.CacheTTL},
		{"retry_base_delay", fc.RetryBaseDelay, &c.RetryBaseDelay},
		{"retry_max_delay", fc.RetryMaxDelay, &c.RetryMaxDelay},
		{"connect_timeout", fc.ConnectTimeout, &c.ConnectTimeout},
		{"read_timeout", fc.ReadTimeout, &c.ReadTimeout},
		{"write_timeout", fc.WriteTimeout, &c.WriteTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DONETICK_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("DONETICK_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("DONETICK_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("DONETICK_API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("DONETICK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"DONETICK_ALLOW_HTTP", &c.AllowHTTP},
		{"DONETICK_TLS_SKIP_VERIFY", &c.TLSSkipVerify},
	}
	for _, b := range bools {
		v := os.Getenv(b.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
		*b.dst = parsed
	}

	if v := os.Getenv("DONETICK_RATE_LIMIT"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DONETICK_RATE_LIMIT: %w", err)
		}
		c.RateLimit = parsed
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"DONETICK_RATE_BURST", &c.RateBurst},
		{"DONETICK_MAX_RETRIES", &c.MaxRetries},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", i.key, err)
		}
		*i.dst = parsed
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DONETICK_CACHE_TTL", &c.CacheTTL},
		{"DONETICK_RETRY_BASE_DELAY", &c.RetryBaseDelay},
		{"DONETICK_RETRY_MAX_DELAY", &c.RetryMaxDelay},
		{"DONETICK_CONNECT_TIMEOUT", &c.ConnectTimeout},
		{"DONETICK_READ_TIMEOUT", &c.ReadTimeout},
		{"DONETICK_WRITE_TIMEOUT", &c.WriteTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate rejects configurations the client must never be built from.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("DONETICK_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("DONETICK_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !c.AllowHTTP {
			return fmt.Errorf("DONETICK_BASE_URL must use https (set DONETICK_ALLOW_HTTP=true for local instances)")
		}
	default:
		return fmt.Errorf("DONETICK_BASE_URL has unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("DONETICK_BASE_URL is missing a host")
	}

	hasPassword := c.Username != "" && c.Password != ""
	hasToken := c.APIToken != ""
	switch {
	case hasPassword && hasToken:
		return fmt.Errorf("configure either username/password or an API token, not both")
	case !hasPassword && !hasToken:
		if c.Username != "" || c.Password != "" {
			return fmt.Errorf("DONETICK_USERNAME and DONETICK_PASSWORD must both be set")
		}
		return fmt.Errorf("credentials required: set DONETICK_USERNAME/DONETICK_PASSWORD or DONETICK_API_TOKEN")
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay <= 0 {
		return fmt.Errorf("retry delays must be positive")
	}
	if c.ConnectTimeout <= 0 || c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
