// Package config loads Literary Finder settings from a YAML file, the
// environment and built-in defaults, in that order of increasing precedence
// for the environment.
//
// Every key can be overridden by a LITERARYFINDER_ prefixed environment
// variable with dots replaced by underscores, e.g. LITERARYFINDER_ARCHIVE_BACKEND.
// Provider credentials are read from their conventional variables
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/literaryfinder/agent"
	"github.com/hupe1980/literaryfinder/books"
	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/engine"
	"github.com/hupe1980/literaryfinder/evaluation"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "LITERARYFINDER"

// Config is the complete Literary Finder configuration.
type Config struct {
	// Provider selects the LLM backend for the model driven workers.
	// Options: "openai", "anthropic"
	Provider string `mapstructure:"provider"`
	// Model overrides the provider's default model id. Empty keeps the default.
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`

	// WorkerTimeout is the deadline of each worker run.
	WorkerTimeout time.Duration `mapstructure:"worker_timeout"`
	// Mode is the default execution mode. Options: "parallel", "sequential"
	Mode     string `mapstructure:"mode"`
	Evaluate bool   `mapstructure:"evaluate"`
	// MaxModelCalls bounds external calls per worker run.
	MaxModelCalls int `mapstructure:"max_model_calls"`

	Retry      RetryConfig      `mapstructure:"retry"`
	Books      BooksConfig      `mapstructure:"books"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`

	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GoogleAPIKey    string `mapstructure:"google_api_key"`
}

// RetryConfig controls worker-internal exponential backoff.
type RetryConfig struct {
	MaxRetries uint64        `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// BooksConfig configures the bibliography lookup.
type BooksConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// MaxResults is the page size of one lookup, 1 to 40.
	MaxResults int `mapstructure:"max_results"`
}

// ArchiveConfig selects where completed responses are kept.
type ArchiveConfig struct {
	// Backend options: "none", "memory", "redis"
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	Namespace string        `mapstructure:"namespace"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Format options: "json", "text"
	Format string `mapstructure:"format"`
}

// EvaluationConfig holds the thresholds behind performance recommendations.
type EvaluationConfig struct {
	MinSuccessRate float64       `mapstructure:"min_success_rate"`
	MaxTotalTime   time.Duration `mapstructure:"max_total_time"`
	SlowRole       time.Duration `mapstructure:"slow_role"`
	MinQuality     float64       `mapstructure:"min_quality"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:      "openai",
		Temperature:   0.7,
		MaxTokens:     4096,
		WorkerTimeout: engine.DefaultConfig.WorkerTimeout,
		Mode:          string(core.ModeParallel),
		Evaluate:      true,
		MaxModelCalls: agent.DefaultMaxCalls,
		Retry: RetryConfig{
			MaxRetries: agent.DefaultRetryPolicy.MaxRetries,
			BaseDelay:  agent.DefaultRetryPolicy.BaseDelay,
			MaxDelay:   agent.DefaultRetryPolicy.MaxDelay,
		},
		Books: BooksConfig{
			BaseURL:    books.DefaultBaseURL,
			MaxResults: 20,
		},
		Archive: ArchiveConfig{
			Backend:   "none",
			RedisAddr: "localhost:6379",
			Namespace: "literaryfinder",
			TTL:       7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Evaluation: EvaluationConfig{
			MinSuccessRate: evaluation.DefaultThresholds.MinSuccessRate,
			MaxTotalTime:   evaluation.DefaultThresholds.MaxTotalTime,
			SlowRole:       evaluation.DefaultThresholds.SlowRole,
			MinQuality:     evaluation.DefaultThresholds.MinQuality,
		},
	}
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("worker_timeout", d.WorkerTimeout)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("evaluate", d.Evaluate)
	v.SetDefault("max_model_calls", d.MaxModelCalls)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)

	v.SetDefault("books.base_url", d.Books.BaseURL)
	v.SetDefault("books.max_results", d.Books.MaxResults)

	v.SetDefault("archive.backend", d.Archive.Backend)
	v.SetDefault("archive.redis_addr", d.Archive.RedisAddr)
	v.SetDefault("archive.namespace", d.Archive.Namespace)
	v.SetDefault("archive.ttl", d.Archive.TTL)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("evaluation.min_success_rate", d.Evaluation.MinSuccessRate)
	v.SetDefault("evaluation.max_total_time", d.Evaluation.MaxTotalTime)
	v.SetDefault("evaluation.slow_role", d.Evaluation.SlowRole)
	v.SetDefault("evaluation.min_quality", d.Evaluation.MinQuality)

	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("google_api_key", "")
}

// New returns a viper instance with defaults and environment bindings but
// no config file.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials use their conventional names first.
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY", EnvPrefix+"_OPENAI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY", EnvPrefix+"_ANTHROPIC_API_KEY")
	_ = v.BindEnv("google_api_key", "GOOGLE_API_KEY", EnvPrefix+"_GOOGLE_API_KEY")
	return v
}

// Load reads the configuration. An explicit path must exist; without one the
// file literaryfinder.yaml is looked up in the working directory and in
// ConfigDir, and a missing file is not an error. Settings are validated;
// credentials are left to Validate because not every command needs them.
func Load(path string) (*Config, error) {
	v := New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &core.ConfigurationError{Key: "config", Message: "cannot read " + path, Err: err}
		}
	} else {
		v.SetConfigName("literaryfinder")
		v.AddConfigPath(".")
		if dir := ConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &core.ConfigurationError{Key: "config", Message: "cannot read config file", Err: err}
			}
		}
	}

	return FromViper(v)
}

// FromViper decodes the settings held by v and runs ValidateSettings.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &core.ConfigurationError{Key: "config", Message: "cannot decode settings", Err: err}
	}
	if err := cfg.ValidateSettings(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns ~/.config/literaryfinder, or "" if the home directory is
// unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "literaryfinder")
}

// Validate checks settings and the credentials of the selected provider. It
// returns the first problem as a *core.ConfigurationError.
func (c *Config) Validate() error {
	if err := c.ValidateSettings(); err != nil {
		return err
	}
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return invalid("openai_api_key", "OPENAI_API_KEY is not set")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return invalid("anthropic_api_key", "ANTHROPIC_API_KEY is not set")
		}
	}
	return nil
}

// ValidateSettings checks every value except credentials.
func (c *Config) ValidateSettings() error {
	if c.Provider != "openai" && c.Provider != "anthropic" {
		return invalid("provider", fmt.Sprintf("unknown provider %q (valid: openai, anthropic)", c.Provider))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return invalid("temperature", fmt.Sprintf("must be between 0 and 2, got %g", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		return invalid("max_tokens", "must be positive")
	}
	if c.WorkerTimeout <= 0 {
		return invalid("worker_timeout", "must be positive")
	}
	if _, err := core.ParseMode(c.Mode); err != nil {
		return &core.ConfigurationError{Key: "mode", Message: "invalid mode", Err: err}
	}
	if c.MaxModelCalls <= 0 {
		return invalid("max_model_calls", "must be positive")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return invalid("retry", "delays must not be negative")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		return invalid("retry.max_delay", "must not be below retry.base_delay")
	}
	if c.Books.BaseURL == "" {
		return invalid("books.base_url", "must not be empty")
	}
	if c.Books.MaxResults < 1 || c.Books.MaxResults > 40 {
		return invalid("books.max_results", fmt.Sprintf("must be between 1 and 40, got %d", c.Books.MaxResults))
	}

	switch c.Archive.Backend {
	case "none", "memory":
	case "redis":
		if c.Archive.RedisAddr == "" {
			return invalid("archive.redis_addr", "required for the redis backend")
		}
	default:
		return invalid("archive.backend", fmt.Sprintf("unknown backend %q (valid: none, memory, redis)", c.Archive.Backend))
	}
	if c.Archive.TTL < 0 {
		return invalid("archive.ttl", "must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return invalid("logging.format", fmt.Sprintf("unknown format %q (valid: json, text)", c.Logging.Format))
	}

	if c.Evaluation.MinSuccessRate < 0 || c.Evaluation.MinSuccessRate > 1 {
		return invalid("evaluation.min_success_rate", "must be between 0 and 1")
	}
	if c.Evaluation.MinQuality < 0 || c.Evaluation.MinQuality > 1 {
		return invalid("evaluation.min_quality", "must be between 0 and 1")
	}
	return nil
}

func invalid(key, msg string) error {
	return &core.ConfigurationError{Key: key, Message: msg}
}

// EngineConfig maps the settings onto engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		WorkerTimeout: c.WorkerTimeout,
		Evaluate:      c.Evaluate,
		Thresholds: evaluation.Thresholds{
			MinSuccessRate: c.Evaluation.MinSuccessRate,
			MaxTotalTime:   c.Evaluation.MaxTotalTime,
			SlowRole:       c.Evaluation.SlowRole,
			MinQuality:     c.Evaluation.MinQuality,
		},
	}
}

// RetryPolicy maps the retry settings onto agent.RetryPolicy.
func (c *Config) RetryPolicy() agent.RetryPolicy {
	return agent.RetryPolicy{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
	}
}

// DefaultMode returns the configured execution mode.
func (c *Config) DefaultMode() core.Mode {
	m, _ := core.ParseMode(c.Mode)
	return m
}
