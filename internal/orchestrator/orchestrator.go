// Package orchestrator drives a session through its four phases:
// metadata, pareto, strategic, execution.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tessellate-ai/maestro/internal/blackboard"
	"github.com/tessellate-ai/maestro/internal/guardrail"
	"github.com/tessellate-ai/maestro/internal/llm"
	"github.com/tessellate-ai/maestro/internal/planner"
	"github.com/tessellate-ai/maestro/internal/registry"
	"github.com/tessellate-ai/maestro/internal/router"
	"github.com/tessellate-ai/maestro/internal/scheduler"
	"github.com/tessellate-ai/maestro/pkg/models"
)

// systemPrompt frames the planning-phase model calls.
const systemPrompt = "You are the planning model of an engineering orchestration session. " +
	"Follow the phase directives exactly and produce only the requested output."

// SessionOutput is what the execution phase reports to the completion
// predicate.
type SessionOutput struct {
	// TestsPassed reports whether the run's verification succeeded.
	TestsPassed bool
	// TodoItems lists outstanding follow-up work.
	TodoItems []string
	// Blockers lists problems that prevent completion.
	Blockers []string
}

// CompletionPredicate maps the session output to a terminal outcome.
// A nil result means the predicate defers.
type CompletionPredicate func(out SessionOutput) *models.SessionOutcome

// DefaultPredicate completes when tests passed with nothing left to do,
// blocks when blockers exist, and otherwise defers.
func DefaultPredicate(out SessionOutput) *models.SessionOutcome {
	if len(out.Blockers) > 0 {
		o := models.OutcomeBlocked
		return &o
	}
	if out.TestsPassed && len(out.TodoItems) == 0 {
		o := models.OutcomeComplete
		return &o
	}
	return nil
}

// Config carries the orchestrator's settings.
type Config struct {
	// TaskID overrides the auto-generated session task ID.
	TaskID string
	// Planner tunes plan shape.
	Planner planner.Preferences
	// Scheduler tunes the execution phase.
	Scheduler scheduler.Config
}

// Result is the terminal summary of a session.
type Result struct {
	// TaskID is the session identifier assigned in the metadata phase.
	TaskID string `json:"task_id"`
	// Outcome is the terminal disposition.
	Outcome models.SessionOutcome `json:"outcome"`
	// Pareto is the validated file ranking from the pareto phase.
	Pareto []guardrail.ParetoItem `json:"pareto,omitempty"`
	// Plan is the validated strategic plan text.
	Plan string `json:"plan,omitempty"`
	// Strategy is the planning template used for decomposition.
	Strategy string `json:"strategy,omitempty"`
	// Execution is the scheduler's run summary.
	Execution *scheduler.Result `json:"execution,omitempty"`
	// DurationMs is the wall-clock session time.
	DurationMs int64 `json:"duration_ms"`
}

// Orchestrator owns one session. Not safe for concurrent phase calls;
// a session advances from a single goroutine.
type Orchestrator struct {
	board     *blackboard.Blackboard
	registry  *registry.Registry
	agents    *router.Router
	model     scheduler.ModelCaller
	guards    *guardrail.Manager
	predicate CompletionPredicate
	cfg       Config

	taskID    string
	startedAt time.Time
	query     string
	pareto    []guardrail.ParetoItem
	plan      *guardrail.StrategicPlan
}

// New assembles an Orchestrator. A nil predicate installs the default.
func New(board *blackboard.Blackboard, reg *registry.Registry, model scheduler.ModelCaller,
	guards *guardrail.Manager, predicate CompletionPredicate, cfg Config) *Orchestrator {
	if predicate == nil {
		predicate = DefaultPredicate
	}
	return &Orchestrator{
		board:     board,
		registry:  reg,
		agents:    router.New(reg),
		model:     model,
		guards:    guards,
		predicate: predicate,
		cfg:       cfg,
	}
}

// TaskID returns the session identifier, empty before the metadata phase.
func (o *Orchestrator) TaskID() string { return o.taskID }

// CurrentPhase returns the session's current phase.
func (o *Orchestrator) CurrentPhase() models.Phase { return o.guards.CurrentPhase() }

// InitializeMetadata enters the metadata phase: assigns the session task
// ID and the start timestamp. Never calls the model.
func (o *Orchestrator) InitializeMetadata(query string) error {
	if err := o.guards.Transition(models.PhaseMetadata); err != nil {
		return err
	}
	o.taskID = o.cfg.TaskID
	if o.taskID == "" {
		o.taskID = fmt.Sprintf("task-%d", time.Now().UnixMilli())
	}
	o.startedAt = time.Now()
	o.query = query
	log.Printf("[orchestrator] session %s started", o.taskID)
	return nil
}

// ExecutePareto runs the pareto phase: one deterministic model call whose
// output must validate as a file ranking, with one retry on invalid output.
func (o *Orchestrator) ExecutePareto(ctx context.Context) error {
	if err := o.guards.Transition(models.PhasePareto); err != nil {
		return err
	}
	resp, err := o.phaseCall(ctx, 0)
	if err != nil {
		return fmt.Errorf("pareto call: %w", err)
	}

	items, perr := guardrail.ParsePareto(resp.Text)
	if perr != nil {
		o.guards.ValidationFailure(models.PhasePareto, perr.Error())
		resp, err = o.phaseCall(ctx, 0)
		if err != nil {
			return fmt.Errorf("pareto retry call: %w", err)
		}
		items, perr = guardrail.ParsePareto(resp.Text)
		if perr != nil {
			return fmt.Errorf("pareto output invalid after retry: %w", perr)
		}
	}
	o.pareto = items
	return nil
}

// ExecuteStrategic runs the strategic phase: one low-temperature model
// call whose output must carry the sentinel within the token budget,
// with one retry on invalid output.
func (o *Orchestrator) ExecuteStrategic(ctx context.Context) error {
	if err := o.guards.Transition(models.PhaseStrategic); err != nil {
		return err
	}
	resp, err := o.phaseCall(ctx, 0.2)
	if err != nil {
		return fmt.Errorf("strategic call: %w", err)
	}

	plan, perr := guardrail.ParseStrategic(resp.Text)
	if perr != nil {
		o.guards.ValidationFailure(models.PhaseStrategic, perr.Error())
		resp, err = o.phaseCall(ctx, 0.2)
		if err != nil {
			return fmt.Errorf("strategic retry call: %w", err)
		}
		plan, perr = guardrail.ParseStrategic(resp.Text)
		if perr != nil {
			return fmt.Errorf("strategic output invalid after retry: %w", perr)
		}
	}
	o.plan = plan
	return nil
}

// ExecuteExecution enters the execution phase: plans the DAG, registers
// its tasks, and hands off to the scheduler. The completion predicate
// decides the terminal outcome.
func (o *Orchestrator) ExecuteExecution(ctx context.Context) (*Result, error) {
	if err := o.guards.Transition(models.PhaseExecution); err != nil {
		return nil, err
	}

	plan, err := planner.Decompose(o.query, o.registry.List(), o.cfg.Planner)
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	tasks := plan.DAG.Tasks()
	defs := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		defs = append(defs, *t)
	}
	o.board.RegisterTasks(defs)

	sched := scheduler.New(plan.DAG, o.board, o.agents, o.model, o.guards, o.cfg.Scheduler)
	execResult, runErr := sched.Run(ctx)

	res := &Result{
		TaskID:     o.taskID,
		Pareto:     o.pareto,
		Strategy:   string(plan.Strategy),
		Execution:  execResult,
		DurationMs: time.Since(o.startedAt).Milliseconds(),
	}
	if o.plan != nil {
		res.Plan = o.plan.Plan
	}
	res.Outcome = o.outcome(execResult, runErr)
	return res, runErr
}

// Run drives a full session from query to terminal outcome.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Result, error) {
	if err := o.InitializeMetadata(query); err != nil {
		return nil, err
	}
	if err := o.ExecutePareto(ctx); err != nil {
		return o.failedResult(), err
	}
	if err := o.ExecuteStrategic(ctx); err != nil {
		return o.failedResult(), err
	}
	return o.ExecuteExecution(ctx)
}

// outcome applies the completion predicate to the execution summary.
func (o *Orchestrator) outcome(exec *scheduler.Result, runErr error) models.SessionOutcome {
	if runErr != nil {
		if runErr == context.Canceled {
			return models.OutcomeCancelled
		}
		return models.OutcomeFailed
	}

	out := SessionOutput{TestsPassed: len(exec.Failed) == 0 && len(exec.Blocked) == 0}
	for _, id := range exec.Failed {
		out.Blockers = append(out.Blockers, "task failed: "+id)
	}
	for _, id := range exec.Blocked {
		out.TodoItems = append(out.TodoItems, "task blocked: "+id)
	}
	if verdict := o.predicate(out); verdict != nil {
		return *verdict
	}
	// The scheduler has terminated, so a deferring predicate still has to
	// resolve to something; incomplete work reads as blocked.
	if len(exec.Failed) > 0 || len(exec.Blocked) > 0 {
		return models.OutcomeBlocked
	}
	return models.OutcomeComplete
}

func (o *Orchestrator) failedResult() *Result {
	return &Result{
		TaskID:     o.taskID,
		Outcome:    models.OutcomeFailed,
		Pareto:     o.pareto,
		DurationMs: time.Since(o.startedAt).Milliseconds(),
	}
}

// phaseCall performs one planning-phase model call. The request carries
// the original query plus every pending guardrail directive.
func (o *Orchestrator) phaseCall(ctx context.Context, temperature float64) (*llm.Response, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s.\nRequest: %s\n", o.taskID, o.query)
	for _, g := range o.guards.Pending() {
		fmt.Fprintf(&sb, "\n[guardrail] %s\n", g.Body)
	}
	req := &llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{{
			Role:  llm.RoleUser,
			Parts: []llm.Part{{Text: sb.String()}},
		}},
		Temperature: temperature,
		MaxTokens:   2000,
	}
	return o.model.Generate(ctx, req)
}
