package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	LLM    LLMConfig    `yaml:"llm"`
	Maps   MapsConfig   `yaml:"maps"`
	Chat   ChatConfig   `yaml:"chat"`
	Store  StoreConfig  `yaml:"store"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// ServerConfig holds HTTP gateway settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // default ":8780"
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default 10s
}

// LLMConfig holds chat model provider settings.
type LLMConfig struct {
	Provider  string               `yaml:"provider"` // "anthropic"
	APIKey    string               `yaml:"api_key"`
	BaseURL   string               `yaml:"base_url"`
	Model     string               `yaml:"model"`
	MaxTokens int                  `yaml:"max_tokens"`
	Timeout   time.Duration        `yaml:"timeout"` // per-request, default 120s
	Breaker   CircuitBreakerConfig `yaml:"breaker"`
}

// CircuitBreakerConfig configures the LLM circuit breaker.
type CircuitBreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"` // consecutive failures before the circuit opens
	Timeout     time.Duration `yaml:"timeout"`      // open -> half-open delay
	Interval    time.Duration `yaml:"interval"`     // closed-state failure count reset period
}

// MapsConfig holds map provider settings.
type MapsConfig struct {
	Provider     string        `yaml:"provider"` // "amap" or "tencent"
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	RatePerSec   float64       `yaml:"rate_per_sec"` // outbound request rate, default 10
	RateBurst    int           `yaml:"rate_burst"`   // default 5
	CacheSize    int           `yaml:"cache_size"`   // geocode/search cache entries, default 512
	CacheTTL     time.Duration `yaml:"cache_ttl"`    // default 10m
	WidgetKey    string        `yaml:"widget_key"`   // browser-side map widget key
	WidgetScript string        `yaml:"widget_script"`
}

// ChatConfig holds conversation defaults.
type ChatConfig struct {
	DefaultCity  string `yaml:"default_city"`  // default "上海"
	SystemPrompt string `yaml:"system_prompt"` // optional override of the built-in prompt
	EnrichPlaces bool   `yaml:"enrich_places"` // default true
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // SQLite database path
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn, error
	Format    string `yaml:"format"` // text or json
	Output    string `yaml:"output"` // stdout, stderr, or file path
	AddSource bool   `yaml:"add_source"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Load reads the YAML config at path, expands ${ENV_VAR} references,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8780"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 120 * time.Second
	}
	if c.Maps.Provider == "" {
		c.Maps.Provider = "amap"
	}
	if c.Maps.RatePerSec <= 0 {
		c.Maps.RatePerSec = 10
	}
	if c.Maps.RateBurst <= 0 {
		c.Maps.RateBurst = 5
	}
	if c.Maps.CacheSize <= 0 {
		c.Maps.CacheSize = 512
	}
	if c.Maps.CacheTTL <= 0 {
		c.Maps.CacheTTL = 10 * time.Minute
	}
	if c.Chat.DefaultCity == "" {
		c.Chat.DefaultCity = "上海"
	}
	if c.Store.Enabled && c.Store.Path == "" {
		c.Store.Path = "tripmate.db"
	}
}
