package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Multi-agent task orchestration runtime",
	Long: `Maestro decomposes a request into a task graph, routes each task to
the best-matching agent, and executes the graph with bounded concurrency.

A session moves through four phases: metadata, pareto, strategic, and
execution. Guardrail directives keep the model on track at each phase
boundary, and every run is persisted so it can be inspected later.

Core capabilities:
- Decomposes work into dependency-ordered tasks
- Matches tasks to agent descriptors by keywords and category
- Routes vision content to a vision-capable model
- Retries transient model failures with capped backoff
- Records sessions, snapshots, and events in SQLite`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
