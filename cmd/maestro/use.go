package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessellate-ai/maestro/internal/blackboard"
	"github.com/tessellate-ai/maestro/internal/config"
	"github.com/tessellate-ai/maestro/internal/graph"
	"github.com/tessellate-ai/maestro/internal/guardrail"
	"github.com/tessellate-ai/maestro/internal/registry"
	"github.com/tessellate-ai/maestro/internal/router"
	"github.com/tessellate-ai/maestro/internal/scheduler"
	"github.com/tessellate-ai/maestro/pkg/models"
)

var useCmd = &cobra.Command{
	Use:   "use <agent> <request>",
	Short: "Run a request with one named agent, skipping decomposition",
	Long: `Run a request directly with the named agent.

The planner is bypassed entirely: the request becomes a single task
assigned to the given agent. Useful when you already know which agent
should handle the work, or to test a new agent descriptor.

Examples:
  maestro use code-reviewer "review the changes in internal/llm"
  maestro use general-purpose "summarize the repository layout"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUse,
}

func runUse(cmd *cobra.Command, args []string) error {
	agentName := args[0]
	request := strings.Join(args[1:], " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := registry.New(cfg.Agents.ProjectDir, cfg.Agents.UserDir)
	defer reg.Close()
	if _, err := reg.Get(agentName); err != nil {
		names := []string{registry.DefaultAgent.Name}
		for _, d := range reg.List() {
			names = append(names, d.Name)
		}
		return fmt.Errorf("unknown agent %q (available: %s)", agentName, strings.Join(names, ", "))
	}

	model, err := buildModelRouter(cfg)
	if err != nil {
		return err
	}

	task := &models.Task{
		ID:          "task-1",
		Title:       truncateTitle(request, 60),
		Description: request,
		Effort:      5,
	}

	// The explicit override in the query pins agent resolution.
	query := fmt.Sprintf("use %s: %q", agentName, request)
	dag, err := graph.Build([]*models.Task{task}, query, "single")
	if err != nil {
		return fmt.Errorf("build task graph: %w", err)
	}

	board := blackboard.New()
	board.RegisterTasks([]models.Task{*task})
	guards := guardrail.New(cfg.GuardrailSettings())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	fmt.Printf("Running with agent %s: %s\n\n", agentName, request)

	sched := scheduler.New(dag, board, router.New(reg), model, guards, cfg.SchedulerSettings())
	res, runErr := sched.Run(ctx)
	if res == nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if len(res.Completed) > 0 {
		for _, id := range res.Artifacts {
			a, err := board.GetArtifact(id)
			if err != nil {
				continue
			}
			if a.Content != "" {
				fmt.Println(a.Content)
			}
		}
		fmt.Printf("\nDone in %s.\n", time.Duration(res.DurationMs)*time.Millisecond)
		return nil
	}

	ts, err := board.GetTask("task-1")
	if err == nil && ts.Error != "" {
		return fmt.Errorf("task failed: %s", ts.Error)
	}
	return fmt.Errorf("task did not complete: %w", runErr)
}

// truncateTitle shortens a request to at most n runes, never splitting a
// multi-byte character.
func truncateTitle(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
