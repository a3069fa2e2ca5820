// Package config loads pagepilot settings from a YAML file and the
// environment.
//
// Precedence, lowest first: DefaultConfig, the YAML file, environment
// variables, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvModel   = "PAGEPILOT_MODEL"
)

// Config is the complete pagepilot configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Bridge  BridgeConfig  `yaml:"bridge" json:"bridge"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LLMConfig selects the language model. An empty APIKey selects the demo.
type LLMConfig struct {
	Model       string  `yaml:"model" json:"model"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"-"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// BridgeConfig tunes the tool rendezvous.
type BridgeConfig struct {
	// DispatchTimeout is how long a tool call waits for its result.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout" json:"dispatch_timeout"`

	// ResultTTL is how long an abandoned request is remembered.
	ResultTTL time.Duration `yaml:"result_ttl" json:"result_ttl"`

	// SweepInterval is how often abandoned requests are reclaimed.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// ServerConfig configures the HTTP bridge.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// BrowserConfig configures the in-process browser executor.
type BrowserConfig struct {
	Headless     bool          `yaml:"headless" json:"headless"`
	StartURL     string        `yaml:"start_url" json:"start_url"`
	AllowedHosts []string      `yaml:"allowed_hosts" json:"allowed_hosts"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.3,
		},
		Bridge: BridgeConfig{
			DispatchTimeout: 5 * time.Second,
			ResultTTL:       time.Minute,
			SweepInterval:   30 * time.Second,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8787",
		},
		Browser: BrowserConfig{
			Headless: true,
			StartURL: "https://example.com",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
}

// HasCredential reports whether a live model can be used.
func (c *Config) HasCredential() bool {
	return c.LLM.APIKey != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"dispatch_timeout", c.Bridge.DispatchTimeout},
		{"result_ttl", c.Bridge.ResultTTL},
		{"sweep_interval", c.Bridge.SweepInterval},
		{"browser timeout", c.Browser.Timeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", d.name))
		}
	}

	for _, pattern := range c.Browser.AllowedHosts {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			errs = append(errs, fmt.Errorf("invalid allowed host %q: %w", pattern, err))
		}
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, ok := verbosityLevels[c.Logging.Verbosity]; !ok {
		errs = append(errs, fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity))
	}

	return errors.Join(errs...)
}

var verbosityLevels = map[string]string{
	"quiet":   "error",
	"normal":  "warn",
	"verbose": "info",
	"debug":   "debug",
}

// LogLevel maps the verbosity to a logging level name.
func (c *Config) LogLevel() string {
	if level, ok := verbosityLevels[c.Logging.Verbosity]; ok {
		return level
	}
	return "info"
}
