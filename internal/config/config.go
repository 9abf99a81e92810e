// Package config handles configuration loading and management for Maestro.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/tessellate-ai/maestro/internal/guardrail"
	"github.com/tessellate-ai/maestro/internal/llm"
	"github.com/tessellate-ai/maestro/internal/planner"
	"github.com/tessellate-ai/maestro/internal/scheduler"
)

// Config holds all configuration for Maestro.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Router     RouterConfig     `mapstructure:"router"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	Agents     AgentsConfig     `mapstructure:"agents"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// SchedulerConfig holds execution-phase settings.
type SchedulerConfig struct {
	// MaxConcurrency caps in-flight tasks; 0 means min(tasks, 2x CPUs).
	MaxConcurrency int `mapstructure:"maxConcurrency"`
	// MaxResponseBytes caps buffered model output per task.
	MaxResponseBytes int `mapstructure:"maxResponseBytes"`
	// PerTaskTimeoutMs bounds one task; 0 is unbounded.
	PerTaskTimeoutMs int `mapstructure:"perTaskTimeoutMs"`
	// SessionDeadlineMs bounds the whole run; 0 is unbounded.
	SessionDeadlineMs int           `mapstructure:"sessionDeadlineMs"`
	MaxRetries        int           `mapstructure:"maxRetries"`
	Backoff           BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig holds the retry backoff curve.
type BackoffConfig struct {
	BaseMs int     `mapstructure:"baseMs"`
	Factor float64 `mapstructure:"factor"`
	CapMs  int     `mapstructure:"capMs"`
	Jitter float64 `mapstructure:"jitter"`
}

// GuardrailsConfig holds guardrail emission toggles.
type GuardrailsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	PhaseTransitionMessages bool `mapstructure:"phaseTransitionMessages"`
	ToolCallValidation      bool `mapstructure:"toolCallValidation"`
	RetryEnabled            bool `mapstructure:"retryEnabled"`
}

// RouterConfig holds content-routing settings.
type RouterConfig struct {
	// Strategy is one of explicit, tool-based, auto.
	Strategy       string   `mapstructure:"strategy"`
	FallbackToText bool     `mapstructure:"fallbackToText"`
	TextModel      string   `mapstructure:"textModel"`
	VisionModel    string   `mapstructure:"visionModel"`
	FallbackModels []string `mapstructure:"fallbackModels"`
}

// PlannerConfig holds decomposition settings.
type PlannerConfig struct {
	MaxTasks              int    `mapstructure:"maxTasks"`
	DetailLevel           string `mapstructure:"detailLevel"`
	ParallelismPreference string `mapstructure:"parallelismPreference"`
}

// AgentsConfig holds agent descriptor discovery settings.
type AgentsConfig struct {
	// ProjectDir is the project-local descriptor directory.
	ProjectDir string `mapstructure:"projectDir"`
	// UserDir is the user-global descriptor directory.
	UserDir string `mapstructure:"userDir"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, MAESTRO_*)
// 2. Project config (.maestro.yaml in current directory or parent)
// 3. User config (~/.config/maestro/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MAESTRO")
	v.AutomaticEnv()
	if err := v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxResponseBytes:  8 << 20,
			SessionDeadlineMs: 30 * 60 * 1000,
			MaxRetries:        3,
			Backoff: BackoffConfig{
				BaseMs: 500,
				Factor: 2,
				CapMs:  30000,
				Jitter: 0.2,
			},
		},
		Guardrails: GuardrailsConfig{
			Enabled:                 true,
			PhaseTransitionMessages: true,
			ToolCallValidation:      true,
			RetryEnabled:            true,
		},
		Router: RouterConfig{
			Strategy:       "auto",
			FallbackToText: true,
		},
		Planner: PlannerConfig{
			MaxTasks:              10,
			DetailLevel:           "medium",
			ParallelismPreference: "medium",
		},
		Agents: AgentsConfig{
			ProjectDir: filepath.Join(".maestro", "agents"),
			UserDir:    filepath.Join(getUserConfigDir(), "agents"),
		},
	}
}

// SchedulerSettings converts the document values into the scheduler's config.
func (c *Config) SchedulerSettings() scheduler.Config {
	return scheduler.Config{
		MaxConcurrency:   c.Scheduler.MaxConcurrency,
		MaxResponseBytes: c.Scheduler.MaxResponseBytes,
		PerTaskTimeout:   time.Duration(c.Scheduler.PerTaskTimeoutMs) * time.Millisecond,
		SessionDeadline:  time.Duration(c.Scheduler.SessionDeadlineMs) * time.Millisecond,
		MaxRetries:       c.Scheduler.MaxRetries,
		BackoffBase:      time.Duration(c.Scheduler.Backoff.BaseMs) * time.Millisecond,
		BackoffFactor:    c.Scheduler.Backoff.Factor,
		BackoffJitter:    c.Scheduler.Backoff.Jitter,
		BackoffCap:       time.Duration(c.Scheduler.Backoff.CapMs) * time.Millisecond,
	}
}

// GuardrailSettings converts the document values into the guardrail config.
func (c *Config) GuardrailSettings() guardrail.Config {
	return guardrail.Config{
		Enabled:                 c.Guardrails.Enabled,
		PhaseTransitionMessages: c.Guardrails.PhaseTransitionMessages,
		ToolCallValidation:      c.Guardrails.ToolCallValidation,
		RetryEnabled:            c.Guardrails.RetryEnabled,
	}
}

// RouterSettings converts the document values into the content-router config.
func (c *Config) RouterSettings() llm.RouterConfig {
	return llm.RouterConfig{
		Strategy:       llm.Strategy(c.Router.Strategy),
		FallbackToText: c.Router.FallbackToText,
	}
}

// PlannerSettings converts the document values into planner preferences.
func (c *Config) PlannerSettings() planner.Preferences {
	return planner.Preferences{
		MaxTasks:    c.Planner.MaxTasks,
		DetailLevel: c.Planner.DetailLevel,
		Parallelism: c.Planner.ParallelismPreference,
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("scheduler.maxConcurrency", 0)
	v.SetDefault("scheduler.maxResponseBytes", 8<<20)
	v.SetDefault("scheduler.perTaskTimeoutMs", 0)
	v.SetDefault("scheduler.sessionDeadlineMs", 30*60*1000)
	v.SetDefault("scheduler.maxRetries", 3)
	v.SetDefault("scheduler.backoff.baseMs", 500)
	v.SetDefault("scheduler.backoff.factor", 2.0)
	v.SetDefault("scheduler.backoff.capMs", 30000)
	v.SetDefault("scheduler.backoff.jitter", 0.2)

	v.SetDefault("guardrails.enabled", true)
	v.SetDefault("guardrails.phaseTransitionMessages", true)
	v.SetDefault("guardrails.toolCallValidation", true)
	v.SetDefault("guardrails.retryEnabled", true)

	v.SetDefault("router.strategy", "auto")
	v.SetDefault("router.fallbackToText", true)
	v.SetDefault("router.textModel", "")
	v.SetDefault("router.visionModel", "")

	v.SetDefault("planner.maxTasks", 10)
	v.SetDefault("planner.detailLevel", "medium")
	v.SetDefault("planner.parallelismPreference", "medium")

	v.SetDefault("agents.projectDir", filepath.Join(".maestro", "agents"))
	v.SetDefault("agents.userDir", filepath.Join(getUserConfigDir(), "agents"))
}

// getUserConfigDir returns the XDG config directory for Maestro.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "maestro")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "maestro")
	}
	return filepath.Join(home, ".config", "maestro")
}

// findProjectConfig searches for .maestro.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".maestro.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
