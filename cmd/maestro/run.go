package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tessellate-ai/maestro/internal/blackboard"
	"github.com/tessellate-ai/maestro/internal/config"
	"github.com/tessellate-ai/maestro/internal/guardrail"
	"github.com/tessellate-ai/maestro/internal/orchestrator"
	"github.com/tessellate-ai/maestro/internal/registry"
	"github.com/tessellate-ai/maestro/internal/state"
	"github.com/tessellate-ai/maestro/pkg/models"
)

var (
	runConcurrency int
	runMaxTasks    int
	runNoPersist   bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a request through a full orchestration session",
	Long: `Run a request through the four session phases.

The request is ranked (pareto), planned (strategic), decomposed into a
task graph, and executed by agents with bounded concurrency. Progress
is printed as tasks change state, and the finished session is persisted
to the state database unless --no-persist is given.

To force a specific agent for the whole request, use:
  maestro use <agent> "your request"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSession,
}

func init() {
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Max tasks in flight (0 = one slot per task)")
	runCmd.Flags().IntVar(&runMaxTasks, "max-tasks", 0, "Cap the number of planned tasks")
	runCmd.Flags().BoolVar(&runNoPersist, "no-persist", false, "Skip recording the session in the state database")
}

func runSession(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runConcurrency > 0 {
		cfg.Scheduler.MaxConcurrency = runConcurrency
	}
	if runMaxTasks > 0 {
		cfg.Planner.MaxTasks = runMaxTasks
	}

	model, err := buildModelRouter(cfg)
	if err != nil {
		return err
	}

	reg := registry.New(cfg.Agents.ProjectDir, cfg.Agents.UserDir)
	defer reg.Close()

	board := blackboard.New()
	guards := guardrail.New(cfg.GuardrailSettings())
	orch := orchestrator.New(board, reg, model, guards, nil, orchestrator.Config{
		Planner:   cfg.PlannerSettings(),
		Scheduler: cfg.SchedulerSettings(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	stream := orchestrator.NewEventStream(board, 256)
	var recorded []blackboard.Event
	streamDone := make(chan struct{})
	go func() {
		consumeEvents(stream.Events(), &recorded)
		close(streamDone)
	}()

	fmt.Printf("Starting session: %s\n", query)
	fmt.Printf("  Routing:     %s (text: %s)\n", cfg.Router.Strategy, model.TextModel())
	if v := model.VisionModel(); v != "" {
		fmt.Printf("  Vision:      %s\n", v)
	}
	fmt.Println()

	startedAt := time.Now()
	result, runErr := orch.Run(ctx, query)
	stream.Close()
	<-streamDone

	if result == nil {
		return fmt.Errorf("session failed: %w", runErr)
	}

	printResult(result)
	if !runNoPersist {
		if err := persistSession(result, query, startedAt, board, recorded); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: session not persisted: %v\n", err)
		}
	}
	if runErr != nil && runErr != context.Canceled {
		return fmt.Errorf("session %s: %w", result.TaskID, runErr)
	}
	return nil
}

// printResult renders the session summary.
func printResult(res *orchestrator.Result) {
	fmt.Println()
	switch res.Outcome {
	case models.OutcomeComplete:
		fmt.Printf("%s %s\n", color.GreenString("✓"), res.Outcome)
	case models.OutcomeBlocked:
		fmt.Printf("%s %s\n", color.YellowString("⚠"), res.Outcome)
	default:
		fmt.Printf("%s %s\n", color.RedString("✗"), res.Outcome)
	}

	if res.Execution != nil {
		exec := res.Execution
		fmt.Printf("  Completed:   %d\n", len(exec.Completed))
		if len(exec.Failed) > 0 {
			fmt.Printf("  Failed:      %s\n", color.RedString(strings.Join(exec.Failed, ", ")))
		}
		if len(exec.Blocked) > 0 {
			fmt.Printf("  Blocked:     %s\n", color.YellowString(strings.Join(exec.Blocked, ", ")))
		}
		fmt.Printf("  Artifacts:   %d\n", len(exec.Artifacts))
		if len(exec.CriticalPath) > 0 {
			fmt.Printf("  Critical path: %s\n", strings.Join(exec.CriticalPath, " → "))
		}
	}
	fmt.Printf("  Duration:    %s\n", time.Duration(res.DurationMs)*time.Millisecond)
	fmt.Printf("  Session:     %s\n", res.TaskID)
}

// persistSession records the finished session, its final snapshot, and the
// event log in the global state database.
func persistSession(res *orchestrator.Result, query string, startedAt time.Time,
	board *blackboard.Blackboard, events []blackboard.Event) error {
	db, err := state.Open(state.GlobalDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	sess := &state.Session{
		ID:        res.TaskID,
		Query:     query,
		StartedAt: startedAt,
	}
	if err := db.CreateSession(sess); err != nil {
		return err
	}
	if err := db.FinishSession(res.TaskID, res.Outcome, res.Strategy, res.DurationMs); err != nil {
		return err
	}
	if err := db.SaveSnapshot(res.TaskID, board.Snapshot()); err != nil {
		return err
	}
	for _, ev := range events {
		if err := db.AppendEvent(res.TaskID, ev); err != nil {
			return err
		}
	}
	return nil
}
