// Package scheduler executes a task DAG concurrently, respecting
// dependencies, concurrency caps, per-task timeouts, and cancellation.
package scheduler

import (
	"context"
	"log"
	"runtime"
	"sort"
	"time"

	"github.com/tessellate-ai/maestro/internal/blackboard"
	"github.com/tessellate-ai/maestro/internal/graph"
	"github.com/tessellate-ai/maestro/internal/guardrail"
	"github.com/tessellate-ai/maestro/internal/llm"
	"github.com/tessellate-ai/maestro/internal/router"
	"github.com/tessellate-ai/maestro/pkg/models"
)

// ModelCaller is the slice of the content router the scheduler needs.
type ModelCaller interface {
	Generate(ctx context.Context, req *llm.Request) (*llm.Response, error)
	Fallback(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Config carries the scheduler's tunables.
type Config struct {
	// MaxConcurrency caps in-flight tasks. Zero means min(task count,
	// twice the CPU count).
	MaxConcurrency int
	// MaxResponseBytes caps how much of a model response a unit will
	// buffer. Zero means 8 MiB.
	MaxResponseBytes int
	// PerTaskTimeout bounds a single execution unit. Zero disables it.
	PerTaskTimeout time.Duration
	// SessionDeadline bounds the whole run. Zero disables it.
	SessionDeadline time.Duration
	// MaxRetries is the same-model retry budget for transient failures.
	MaxRetries int
	// BackoffBase is the first retry delay.
	BackoffBase time.Duration
	// BackoffFactor multiplies the delay per attempt.
	BackoffFactor float64
	// BackoffJitter is the symmetric jitter fraction applied to each delay.
	BackoffJitter float64
	// BackoffCap is the maximum delay between retries.
	BackoffCap time.Duration
	// GracePeriod is how long cancelled units get to wind down.
	GracePeriod time.Duration
}

// DefaultConfig returns the standard scheduler tuning.
func DefaultConfig() Config {
	return Config{
		MaxResponseBytes: 8 << 20,
		MaxRetries:       3,
		BackoffBase:      500 * time.Millisecond,
		BackoffFactor:    2,
		BackoffJitter:    0.2,
		BackoffCap:       30 * time.Second,
		GracePeriod:      5 * time.Second,
	}
}

// Result summarizes a finished run.
type Result struct {
	// Completed lists task IDs that finished successfully.
	Completed []string `json:"completed"`
	// Failed lists task IDs that failed.
	Failed []string `json:"failed"`
	// Blocked lists task IDs skipped because an upstream task failed.
	Blocked []string `json:"blocked"`
	// Artifacts lists every artifact ID produced during the run.
	Artifacts []string `json:"artifacts"`
	// DurationMs is the wall-clock run time.
	DurationMs int64 `json:"duration_ms"`
	// CriticalPath is the heaviest dependency chain by effort.
	CriticalPath []string `json:"critical_path"`
}

// Scheduler drives the DAG to completion.
type Scheduler struct {
	dag    *graph.TaskDAG
	board  *blackboard.Blackboard
	agents *router.Router
	model  ModelCaller
	guards *guardrail.Manager
	cfg    Config
}

// New assembles a Scheduler. The agent router, model caller, and guardrail
// manager are shared with the orchestrator that owns the session.
func New(dag *graph.TaskDAG, board *blackboard.Blackboard, agents *router.Router,
	model ModelCaller, guards *guardrail.Manager, cfg Config) *Scheduler {
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = 8 << 20
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffFactor == 0 {
		cfg.BackoffFactor = 2
	}
	if cfg.BackoffCap == 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = 5 * time.Second
	}
	return &Scheduler{
		dag:    dag,
		board:  board,
		agents: agents,
		model:  model,
		guards: guards,
		cfg:    cfg,
	}
}

// Run executes the DAG until every task reaches a terminal state or the
// context is cancelled. Tasks not yet registered on the blackboard are
// registered first.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	s.ensureRegistered()

	if s.cfg.SessionDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SessionDeadline)
		defer cancel()
	}
	unitCtx, cancelUnits := context.WithCancel(context.Background())
	defer cancelUnits()

	slots := s.slotCount()
	results := make(chan unitOutcome, s.dag.Size())
	inFlight := 0

	for {
		if ctx.Err() != nil {
			s.drain(cancelUnits, results, inFlight)
			return s.summarize(start), ctx.Err()
		}

		for _, id := range s.readySet() {
			if inFlight >= slots {
				break
			}
			if _, err := s.launch(unitCtx, id, results); err != nil {
				log.Printf("[scheduler] dispatch %s: %v", id, err)
				continue
			}
			inFlight++
		}

		if s.allTerminal() {
			break
		}

		if inFlight == 0 {
			// No dispatchable work but non-terminal tasks remain: their
			// dependency chains can never complete.
			s.blockStranded()
			break
		}

		select {
		case out := <-results:
			inFlight--
			s.apply(out)
		case <-ctx.Done():
			s.drain(cancelUnits, results, inFlight)
			return s.summarize(start), ctx.Err()
		}
	}

	for inFlight > 0 {
		out := <-results
		inFlight--
		s.apply(out)
	}
	return s.summarize(start), nil
}

// slotCount is the concurrency bound for a run: the configured cap, or
// min(task count, twice the CPU count) when none is set.
func (s *Scheduler) slotCount() int {
	slots := s.dag.Size()
	if c := 2 * runtime.NumCPU(); slots > c {
		slots = c
	}
	if s.cfg.MaxConcurrency > 0 && s.cfg.MaxConcurrency < slots {
		slots = s.cfg.MaxConcurrency
	}
	return slots
}

// ensureRegistered puts the DAG's tasks on the blackboard if the session
// owner has not already done so.
func (s *Scheduler) ensureRegistered() {
	tasks := s.dag.Tasks()
	if len(tasks) == 0 {
		return
	}
	if _, err := s.board.GetTask(tasks[0].ID); err == nil {
		return
	}
	defs := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		defs = append(defs, *t)
	}
	s.board.RegisterTasks(defs)
}

// readySet returns dispatchable task IDs in dispatch order: larger effort
// first, ties broken by ascending ID. Pending tasks whose dependencies
// have all completed are promoted to ready on the blackboard.
func (s *Scheduler) readySet() []string {
	states := s.board.ListTasks()
	completed := make(map[string]bool, len(states))
	for _, ts := range states {
		if ts.Status == models.TaskStatusCompleted {
			completed[ts.Task.ID] = true
		}
	}

	var ready []*models.TaskState
	for _, ts := range states {
		switch ts.Status {
		case models.TaskStatusReady:
			ready = append(ready, ts)
		case models.TaskStatusPending:
			satisfied := true
			for _, dep := range ts.Task.Dependencies {
				if !completed[dep] {
					satisfied = false
					break
				}
			}
			if satisfied {
				if err := s.board.UpdateStatus(ts.Task.ID, models.TaskStatusReady, "", "dependencies completed"); err != nil {
					log.Printf("[scheduler] promote %s: %v", ts.Task.ID, err)
					continue
				}
				ready = append(ready, ts)
			}
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Task.Effort != ready[j].Task.Effort {
			return ready[i].Task.Effort > ready[j].Task.Effort
		}
		return ready[i].Task.ID < ready[j].Task.ID
	})

	ids := make([]string, len(ready))
	for i, ts := range ready {
		ids[i] = ts.Task.ID
	}
	return ids
}

// launch resolves an agent for a ready task, marks it running, and starts
// its execution unit.
func (s *Scheduler) launch(ctx context.Context, id string, results chan<- unitOutcome) (string, error) {
	task := s.dag.Task(id)
	if task == nil {
		ts, err := s.board.GetTask(id)
		if err != nil {
			return "", err
		}
		task = &ts.Task
	}

	res, err := s.agents.Resolve(task, s.dag.OriginalQuery())
	if err != nil {
		if uerr := s.board.UpdateStatus(id, models.TaskStatusFailed, "", "agent resolution: "+err.Error()); uerr != nil {
			log.Printf("[scheduler] fail %s: %v", id, uerr)
		}
		return "", err
	}
	agent := res.Agent

	if err := s.board.Assign(id, agent.Name); err != nil {
		return "", err
	}
	if err := s.board.UpdateStatus(id, models.TaskStatusRunning, agent.Name, ""); err != nil {
		return "", err
	}

	go s.runUnit(ctx, task, agent, results)
	return agent.Name, nil
}

// apply commits a unit's outcome to the blackboard and the DAG.
func (s *Scheduler) apply(out unitOutcome) {
	switch {
	case out.err == nil:
		s.dag.MarkComplete(out.taskID)
		if err := s.board.UpdateStatus(out.taskID, models.TaskStatusCompleted, out.agent, out.summary); err != nil {
			log.Printf("[scheduler] complete %s: %v", out.taskID, err)
		}
	default:
		reason := out.err.Error()
		if out.timedOut {
			reason = "timeout"
		} else if out.cancelled {
			reason = "cancelled"
		}
		if err := s.board.UpdateStatus(out.taskID, models.TaskStatusFailed, out.agent, reason); err != nil {
			log.Printf("[scheduler] fail %s: %v", out.taskID, err)
		}
	}
}

// drain stops admitting work, cancels in-flight units, waits out the grace
// period, and marks whatever did not finish as failed(cancelled).
func (s *Scheduler) drain(cancelUnits context.CancelFunc, results <-chan unitOutcome, inFlight int) {
	cancelUnits()
	deadline := time.After(s.cfg.GracePeriod)
	for inFlight > 0 {
		select {
		case out := <-results:
			inFlight--
			out.cancelled = true
			if out.err == nil {
				// Finished under the wire; keep the success.
				out.cancelled = false
			}
			s.apply(out)
		case <-deadline:
			s.failRunning("cancelled")
			return
		}
	}
	s.failRunning("cancelled")
}

// failRunning marks every still-running task failed with the given reason.
func (s *Scheduler) failRunning(reason string) {
	for _, ts := range s.board.ListTasks() {
		if ts.Status == models.TaskStatusRunning {
			if err := s.board.UpdateStatus(ts.Task.ID, models.TaskStatusFailed, ts.AssignedAgent, reason); err != nil {
				log.Printf("[scheduler] fail %s: %v", ts.Task.ID, err)
			}
		}
	}
}

// blockStranded marks non-terminal tasks blocked when nothing can
// dispatch them anymore.
func (s *Scheduler) blockStranded() {
	for _, ts := range s.board.ListTasks() {
		if !ts.Status.Terminal() && ts.Status != models.TaskStatusRunning {
			if err := s.board.UpdateStatus(ts.Task.ID, models.TaskStatusBlocked, "", "dependency chain cannot complete"); err != nil {
				log.Printf("[scheduler] block %s: %v", ts.Task.ID, err)
			}
		}
	}
}

func (s *Scheduler) allTerminal() bool {
	for _, ts := range s.board.ListTasks() {
		if !ts.Status.Terminal() {
			return false
		}
	}
	return true
}

// summarize builds the result from the blackboard's terminal states.
func (s *Scheduler) summarize(start time.Time) *Result {
	res := &Result{DurationMs: time.Since(start).Milliseconds()}
	for _, ts := range s.board.ListTasks() {
		switch ts.Status {
		case models.TaskStatusCompleted:
			res.Completed = append(res.Completed, ts.Task.ID)
		case models.TaskStatusFailed:
			res.Failed = append(res.Failed, ts.Task.ID)
		case models.TaskStatusBlocked:
			res.Blocked = append(res.Blocked, ts.Task.ID)
		}
	}
	sort.Strings(res.Completed)
	sort.Strings(res.Failed)
	sort.Strings(res.Blocked)

	for _, a := range s.board.ListArtifacts() {
		res.Artifacts = append(res.Artifacts, a.ID)
	}
	sort.Strings(res.Artifacts)

	path, _ := s.dag.CriticalPath()
	res.CriticalPath = path
	return res
}
