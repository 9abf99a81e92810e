package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tessellate-ai/maestro/internal/config"
	"github.com/tessellate-ai/maestro/internal/registry"
)

var agentsVerbose bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List available agent descriptors",
	Long: `List every agent the router can dispatch to.

Descriptors are discovered from two directories and the built-in
fallback agent:
  - project: .maestro/agents/*.yaml
  - user:    ~/.config/maestro/agents/*.yaml

Project descriptors shadow user descriptors with the same name.`,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().BoolVarP(&agentsVerbose, "verbose", "v", false, "Show tools and keywords per agent")
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := registry.New(cfg.Agents.ProjectDir, cfg.Agents.UserDir)
	defer reg.Close()

	descriptors := reg.List()
	if len(descriptors) == 0 {
		fmt.Println("No descriptor files found.")
		fmt.Printf("Add descriptors under %s or %s\n\n", cfg.Agents.ProjectDir, cfg.Agents.UserDir)
	}
	descriptors = append(descriptors, registry.DefaultAgent)

	for _, d := range descriptors {
		name := agentColor(d.Color).Sprint(d.Name)
		fmt.Printf("%s", name)
		if d.Category != "" {
			fmt.Printf("  (%s)", d.Category)
		}
		fmt.Println()
		if d.Description != "" {
			fmt.Printf("  %s\n", d.Description)
		}
		if agentsVerbose {
			if len(d.Keywords) > 0 {
				fmt.Printf("  keywords: %s\n", strings.Join(d.Keywords, ", "))
			}
			if len(d.Tools) > 0 {
				fmt.Printf("  tools:    %s\n", strings.Join(d.Tools, ", "))
			}
			if d.Model != "" {
				fmt.Printf("  model:    %s\n", d.Model)
			}
		}
		fmt.Println()
	}
	return nil
}

// agentColor maps a descriptor's declared color to a terminal color.
func agentColor(name string) *color.Color {
	switch name {
	case "red":
		return color.New(color.FgRed)
	case "green":
		return color.New(color.FgGreen)
	case "yellow":
		return color.New(color.FgYellow)
	case "blue":
		return color.New(color.FgBlue)
	case "magenta", "purple":
		return color.New(color.FgMagenta)
	case "cyan":
		return color.New(color.FgCyan)
	default:
		return color.New(color.Bold)
	}
}
