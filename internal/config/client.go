package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the backend base URL used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000/api"

// Environment variables consulted by ApplyEnv, in priority order for the base URL.
const (
	EnvAPIURL       = "SURVEY_API_URL"
	EnvLegacyAPIURL = "NEXT_PUBLIC_API_URL"
	EnvPollInterval = "SURVEY_POLL_INTERVAL"
	EnvPollMaxWait  = "SURVEY_POLL_MAX_WAIT"
)

// Defaults for the poll cadence. A multiplier of 1 with no max wait polls at a
// fixed interval until the backend reaches a terminal phase.
const (
	defaultRequestTimeout = 30 * time.Second
	defaultPollInterval   = time.Second
	defaultPollMultiplier = 1.0
)

// ClientConfig is the survey client configuration. Fields are pointers so a
// partial file or environment only overrides what it names; the Get* methods
// supply defaults for everything left unset.
type ClientConfig struct {
	APIURL            *string  `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	RequestTimeout    *string  `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"` // duration string like "30s"
	PollInterval      *string  `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	PollMaxInterval   *string  `json:"poll_max_interval,omitempty" yaml:"poll_max_interval,omitempty"`
	PollMultiplier    *float64 `json:"poll_multiplier,omitempty" yaml:"poll_multiplier,omitempty"`
	PollMaxWait       *string  `json:"poll_max_wait,omitempty" yaml:"poll_max_wait,omitempty"` // "0" or empty: unbounded
	ValidateResponses *bool    `json:"validate_responses,omitempty" yaml:"validate_responses,omitempty"`
	OutputDir         *string  `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyClientConfig returns a ClientConfig with all fields unset.
func EmptyClientConfig() *ClientConfig {
	return &ClientConfig{}
}

// DefaultClientConfig returns a ClientConfig with every field populated with its default.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		APIURL:            ptrString(DefaultAPIURL),
		RequestTimeout:    ptrString(defaultRequestTimeout.String()),
		PollInterval:      ptrString(defaultPollInterval.String()),
		PollMaxInterval:   ptrString(""),
		PollMultiplier:    ptrFloat64(defaultPollMultiplier),
		PollMaxWait:       ptrString(""),
		ValidateResponses: ptrBool(false),
		OutputDir:         ptrString("."),
	}
}

// LoadClientConfig loads a ClientConfig from a .json, .yaml or .yml file.
// Fields omitted from the file stay unset and fall back to defaults.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyClientConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables read through lookup
// (os.LookupEnv in production).
func (c *ClientConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.APIURL = ptrString(v)
	} else if v, ok := lookup(EnvLegacyAPIURL); ok && v != "" {
		c.APIURL = ptrString(v)
	}
	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		c.PollInterval = ptrString(v)
	}
	if v, ok := lookup(EnvPollMaxWait); ok && v != "" {
		c.PollMaxWait = ptrString(v)
	}
}

// Merge overlays every field set in other onto c.
func (c *ClientConfig) Merge(other *ClientConfig) {
	if other == nil {
		return
	}
	if other.APIURL != nil {
		c.APIURL = other.APIURL
	}
	if other.RequestTimeout != nil {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.PollInterval != nil {
		c.PollInterval = other.PollInterval
	}
	if other.PollMaxInterval != nil {
		c.PollMaxInterval = other.PollMaxInterval
	}
	if other.PollMultiplier != nil {
		c.PollMultiplier = other.PollMultiplier
	}
	if other.PollMaxWait != nil {
		c.PollMaxWait = other.PollMaxWait
	}
	if other.ValidateResponses != nil {
		c.ValidateResponses = other.ValidateResponses
	}
	if other.OutputDir != nil {
		c.OutputDir = other.OutputDir
	}
}

// Validate checks that the configuration values are valid.
func (c *ClientConfig) Validate() error {
	if c.APIURL != nil {
		u, err := url.Parse(*c.APIURL)
		if err != nil {
			return fmt.Errorf("invalid api_url %q: %w", *c.APIURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api_url must use http or https, got %q", *c.APIURL)
		}
		if u.Host == "" {
			return fmt.Errorf("api_url must include a host, got %q", *c.APIURL)
		}
	}

	durations := map[string]*string{
		"request_timeout":   c.RequestTimeout,
		"poll_interval":     c.PollInterval,
		"poll_max_interval": c.PollMaxInterval,
		"poll_max_wait":     c.PollMaxWait,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	if c.PollInterval != nil && *c.PollInterval != "" {
		if d, _ := time.ParseDuration(*c.PollInterval); d == 0 {
			return fmt.Errorf("poll_interval must be positive")
		}
	}

	if c.PollMultiplier != nil && *c.PollMultiplier < 1 {
		return fmt.Errorf("poll_multiplier must be >= 1, got %f", *c.PollMultiplier)
	}

	return nil
}

// GetAPIURL returns the backend base URL without a trailing slash.
func (c *ClientConfig) GetAPIURL() string {
	if c.APIURL == nil || *c.APIURL == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(*c.APIURL, "/")
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetRequestTimeout returns the per-request timeout.
func (c *ClientConfig) GetRequestTimeout() time.Duration {
	return parseDurationOr(c.RequestTimeout, defaultRequestTimeout)
}

// GetPollInterval returns the delay between status queries.
func (c *ClientConfig) GetPollInterval() time.Duration {
	d := parseDurationOr(c.PollInterval, defaultPollInterval)
	if d <= 0 {
		return defaultPollInterval
	}
	return d
}

// GetPollMaxInterval returns the cap on the grown poll delay; 0 means no cap.
func (c *ClientConfig) GetPollMaxInterval() time.Duration {
	return parseDurationOr(c.PollMaxInterval, 0)
}

// GetPollMultiplier returns the growth factor applied to the poll delay after each pending phase.
func (c *ClientConfig) GetPollMultiplier() float64 {
	if c.PollMultiplier == nil || *c.PollMultiplier < 1 {
		return defaultPollMultiplier
	}
	return *c.PollMultiplier
}

// GetPollMaxWait returns the total poll budget; 0 means poll until a terminal phase.
func (c *ClientConfig) GetPollMaxWait() time.Duration {
	return parseDurationOr(c.PollMaxWait, 0)
}

// GetValidateResponses reports whether responses are checked against the API contract.
func (c *ClientConfig) GetValidateResponses() bool {
	if c.ValidateResponses == nil {
		return false
	}
	return *c.ValidateResponses
}

// GetOutputDir returns the directory chart and report files are written to.
func (c *ClientConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "."
	}
	return *c.OutputDir
}
