// Package config loads abyssal configuration from YAML with environment
// overrides. Defaults are usable without any file: the server comes up in
// offline mode when no API key is configured.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all abyssal configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Content   ContentConfig   `yaml:"content"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	ReadTimeout string `yaml:"read_timeout"`
}

// LLMConfig configures the analysis collaborator. An empty APIKey selects
// the offline heuristic analyzer.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, static
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// ContentConfig configures the response library override.
type ContentConfig struct {
	// Dir holds a responses.yaml overriding the embedded library.
	Dir string `yaml:"dir"`

	// HotReload watches Dir for changes.
	HotReload bool `yaml:"hot_reload"`
}

// RateLimitConfig configures the global limiter. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig configures the zap root logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8787",
			ReadTimeout: "15s",
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "20s",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; env-only operation is supported.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays ABYSSAL_* variables plus the conventional provider
// key names.
func (c *Config) applyEnv() {
	if v := os.Getenv("ABYSSAL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ABYSSAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ABYSSAL_CONTENT_DIR"); v != "" {
		c.Content.Dir = v
	}
	if v := os.Getenv("ABYSSAL_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("ABYSSAL_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
}

// ReadTimeout parses the server read timeout with a sane fallback.
func (c *Config) ReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// LLMTimeout parses the analysis timeout with a sane fallback.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}
