package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessellate-ai/maestro/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective configuration after merging defaults, the
user config (~/.config/maestro/config.yaml), the project config
(.maestro.yaml in the current directory or a parent), and environment
variables.

Without arguments, displays all values. With a key argument, displays
only that value.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			displayConfigKey(cfg, args[0])
			return
		}
		displayAllConfig(cfg)
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("scheduler.maxConcurrency: %d\n", cfg.Scheduler.MaxConcurrency)
	fmt.Printf("scheduler.maxResponseBytes: %d\n", cfg.Scheduler.MaxResponseBytes)
	fmt.Printf("scheduler.perTaskTimeoutMs: %d\n", cfg.Scheduler.PerTaskTimeoutMs)
	fmt.Printf("scheduler.sessionDeadlineMs: %d\n", cfg.Scheduler.SessionDeadlineMs)
	fmt.Printf("scheduler.maxRetries: %d\n", cfg.Scheduler.MaxRetries)
	fmt.Printf("scheduler.backoff.baseMs: %d\n", cfg.Scheduler.Backoff.BaseMs)
	fmt.Printf("scheduler.backoff.factor: %g\n", cfg.Scheduler.Backoff.Factor)
	fmt.Printf("scheduler.backoff.capMs: %d\n", cfg.Scheduler.Backoff.CapMs)
	fmt.Printf("scheduler.backoff.jitter: %g\n", cfg.Scheduler.Backoff.Jitter)
	fmt.Printf("guardrails.enabled: %t\n", cfg.Guardrails.Enabled)
	fmt.Printf("guardrails.phaseTransitionMessages: %t\n", cfg.Guardrails.PhaseTransitionMessages)
	fmt.Printf("guardrails.toolCallValidation: %t\n", cfg.Guardrails.ToolCallValidation)
	fmt.Printf("guardrails.retryEnabled: %t\n", cfg.Guardrails.RetryEnabled)
	fmt.Printf("router.strategy: %s\n", cfg.Router.Strategy)
	fmt.Printf("router.fallbackToText: %t\n", cfg.Router.FallbackToText)
	fmt.Printf("router.textModel: %s\n", orDefault(cfg.Router.TextModel))
	fmt.Printf("router.visionModel: %s\n", orDefault(cfg.Router.VisionModel))
	fmt.Printf("router.fallbackModels: %s\n", orDefault(strings.Join(cfg.Router.FallbackModels, ", ")))
	fmt.Printf("planner.maxTasks: %d\n", cfg.Planner.MaxTasks)
	fmt.Printf("planner.detailLevel: %s\n", cfg.Planner.DetailLevel)
	fmt.Printf("planner.parallelismPreference: %s\n", cfg.Planner.ParallelismPreference)
	fmt.Printf("agents.projectDir: %s\n", cfg.Agents.ProjectDir)
	fmt.Printf("agents.userDir: %s\n", cfg.Agents.UserDir)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "scheduler.maxConcurrency":
		return strconv.Itoa(cfg.Scheduler.MaxConcurrency), nil
	case "scheduler.maxResponseBytes":
		return strconv.Itoa(cfg.Scheduler.MaxResponseBytes), nil
	case "scheduler.perTaskTimeoutMs":
		return strconv.Itoa(cfg.Scheduler.PerTaskTimeoutMs), nil
	case "scheduler.sessionDeadlineMs":
		return strconv.Itoa(cfg.Scheduler.SessionDeadlineMs), nil
	case "scheduler.maxRetries":
		return strconv.Itoa(cfg.Scheduler.MaxRetries), nil
	case "scheduler.backoff.baseMs":
		return strconv.Itoa(cfg.Scheduler.Backoff.BaseMs), nil
	case "scheduler.backoff.factor":
		return strconv.FormatFloat(cfg.Scheduler.Backoff.Factor, 'g', -1, 64), nil
	case "scheduler.backoff.capMs":
		return strconv.Itoa(cfg.Scheduler.Backoff.CapMs), nil
	case "scheduler.backoff.jitter":
		return strconv.FormatFloat(cfg.Scheduler.Backoff.Jitter, 'g', -1, 64), nil
	case "guardrails.enabled":
		return strconv.FormatBool(cfg.Guardrails.Enabled), nil
	case "guardrails.phaseTransitionMessages":
		return strconv.FormatBool(cfg.Guardrails.PhaseTransitionMessages), nil
	case "guardrails.toolCallValidation":
		return strconv.FormatBool(cfg.Guardrails.ToolCallValidation), nil
	case "guardrails.retryEnabled":
		return strconv.FormatBool(cfg.Guardrails.RetryEnabled), nil
	case "router.strategy":
		return cfg.Router.Strategy, nil
	case "router.fallbackToText":
		return strconv.FormatBool(cfg.Router.FallbackToText), nil
	case "router.textModel":
		return orDefault(cfg.Router.TextModel), nil
	case "router.visionModel":
		return orDefault(cfg.Router.VisionModel), nil
	case "router.fallbackModels":
		return orDefault(strings.Join(cfg.Router.FallbackModels, ", ")), nil
	case "planner.maxTasks":
		return strconv.Itoa(cfg.Planner.MaxTasks), nil
	case "planner.detailLevel":
		return cfg.Planner.DetailLevel, nil
	case "planner.parallelismPreference":
		return cfg.Planner.ParallelismPreference, nil
	case "agents.projectDir":
		return cfg.Agents.ProjectDir, nil
	case "agents.userDir":
		return cfg.Agents.UserDir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
