// Package blackboard implements the shared runtime store for task state,
// artifacts, and inter-agent notes. It is the single point of truth during a
// session and is safe for concurrent readers and writers.
package blackboard

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// ErrNotFound indicates a task, artifact, or note ID is unknown.
var ErrNotFound = errors.New("not found")

// Blackboard owns all TaskState, Artifact, and Note records for a session.
// All mutations go through its methods and are serialized under a single
// lock; every state-changing method emits exactly one event per record it
// mutates, while still holding the lock so each listener observes a
// consistent order.
type Blackboard struct {
	mu sync.RWMutex
	// tasks maps task ID to its runtime record.
	tasks map[string]*models.TaskState
	// dependents maps task ID to the IDs of tasks that depend on it.
	// Maintained as the transpose of the registered tasks' dependency lists.
	dependents map[string][]string
	// artifacts maps artifact ID to the artifact record.
	artifacts map[string]*models.Artifact
	// notes maps note ID to the note record.
	notes map[string]*models.Note
	// listeners holds subscribed event callbacks keyed by subscription ID.
	listeners map[int]Listener
	// nextSub is the next subscription ID to hand out.
	nextSub int
	// clock returns the current time; replaceable in tests.
	clock func() time.Time
}

// New creates an empty Blackboard.
func New() *Blackboard {
	return &Blackboard{
		tasks:      make(map[string]*models.TaskState),
		dependents: make(map[string][]string),
		artifacts:  make(map[string]*models.Artifact),
		notes:      make(map[string]*models.Note),
		listeners:  make(map[int]Listener),
		clock:      time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (b *Blackboard) SetClock(clock func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clock != nil {
		b.clock = clock
	}
}

// RegisterTasks inserts runtime records for a planned task set.
// Tasks with no dependencies start ready; the rest start pending.
// Registering also rebuilds the dependents transpose used for failure
// propagation. Existing records with the same IDs are replaced.
func (b *Blackboard) RegisterTasks(tasks []models.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, task := range tasks {
		status := models.TaskStatusPending
		if len(task.Dependencies) == 0 {
			status = models.TaskStatusReady
		}
		b.tasks[task.ID] = &models.TaskState{
			Task:   task,
			Status: status,
		}
		for _, depID := range task.Dependencies {
			b.dependents[depID] = append(b.dependents[depID], task.ID)
		}
	}
}

// GetTask returns a copy of the runtime record for a task.
func (b *Blackboard) GetTask(id string) (*models.TaskState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ts, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return ts.Clone(), nil
}

// ListTasks returns copies of all task records.
func (b *Blackboard) ListTasks() []*models.TaskState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.TaskState, 0, len(b.tasks))
	for _, ts := range b.tasks {
		out = append(out, ts.Clone())
	}
	return out
}

// UpdateStatus transitions a task to the given status.
//
// Invariants applied atomically with the event emission:
//   - completed sets progress to 100 and stamps the end time
//   - failed stamps the end time, records the note as the error, and
//     transitions every not-yet-terminal dependent to blocked
//   - running stamps the start time on first entry
func (b *Blackboard) UpdateStatus(id string, status models.TaskStatus, agent, note string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid task status %q", status)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updateStatusLocked(id, status, agent, note)
}

// updateStatusLocked applies a transition. Caller must hold b.mu.
func (b *Blackboard) updateStatusLocked(id string, status models.TaskStatus, agent, note string) error {
	ts, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	now := b.clock()
	from := ts.Status
	ts.Status = status
	ts.StatusHistory = append(ts.StatusHistory, models.StatusChange{
		From:      from,
		To:        status,
		Agent:     agent,
		Note:      note,
		Timestamp: now,
	})

	switch status {
	case models.TaskStatusRunning:
		if ts.StartTime == nil {
			t := now
			ts.StartTime = &t
		}
	case models.TaskStatusCompleted:
		ts.Progress = 100
		t := now
		ts.EndTime = &t
	case models.TaskStatusFailed:
		t := now
		ts.EndTime = &t
		if note != "" {
			ts.Error = note
		}
	}

	b.emitLocked(Event{
		Type:      EventTaskStatusChanged,
		Timestamp: now,
		Agent:     agent,
		Data: map[string]any{
			"task_id": id,
			"from":    from,
			"to":      status,
		},
	})

	// Failure propagates blocked to every not-yet-terminal dependent in the
	// same logical operation.
	if status == models.TaskStatusFailed {
		b.blockDependentsLocked(id, agent)
	}
	return nil
}

// blockDependentsLocked transitions all transitive not-yet-terminal
// dependents of a failed or blocked task to blocked. Caller must hold b.mu.
func (b *Blackboard) blockDependentsLocked(failedID, agent string) {
	for _, depID := range b.dependents[failedID] {
		ts, ok := b.tasks[depID]
		if !ok || ts.Status.Terminal() {
			continue
		}
		reason := "dependency failed: " + failedID
		if err := b.updateStatusLocked(depID, models.TaskStatusBlocked, agent, reason); err != nil {
			log.Printf("[blackboard] block dependent %s: %v", depID, err)
			continue
		}
		b.blockDependentsLocked(depID, agent)
	}
}

// Assign records the agent responsible for a task.
func (b *Blackboard) Assign(id, agent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	ts.AssignedAgent = agent
	b.emitLocked(Event{
		Type:      EventTaskStatusChanged,
		Timestamp: b.clock(),
		Agent:     agent,
		Data: map[string]any{
			"task_id":  id,
			"assigned": agent,
		},
	})
	return nil
}

// UpdateProgress sets a task's completion percentage, clamped to [0,100].
//
// Auto-rules: a pending or ready task with progress >= 1 is promoted to
// running, and a running task reaching 100 is promoted to completed. The
// progress write and an auto-rule promotion are two logical operations
// under one lock acquisition, so a call that trips an auto-rule emits two
// events, one per operation.
func (b *Blackboard) UpdateProgress(id string, pct int, agent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	ts.Progress = pct

	b.emitLocked(Event{
		Type:      EventTaskStatusChanged,
		Timestamp: b.clock(),
		Agent:     agent,
		Data: map[string]any{
			"task_id":  id,
			"progress": pct,
		},
	})

	switch {
	case pct >= 1 && (ts.Status == models.TaskStatusPending || ts.Status == models.TaskStatusReady):
		return b.updateStatusLocked(id, models.TaskStatusRunning, agent, "auto: progress started")
	case pct == 100 && ts.Status == models.TaskStatusRunning:
		return b.updateStatusLocked(id, models.TaskStatusCompleted, agent, "auto: progress complete")
	}
	return nil
}

// AddBlockingIssue records a problem preventing a task from progressing.
func (b *Blackboard) AddBlockingIssue(id, text, agent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	ts.BlockingIssues = append(ts.BlockingIssues, models.BlockingIssue{
		Description: text,
		RaisedBy:    agent,
		RaisedAt:    b.clock(),
	})
	b.emitLocked(Event{
		Type:      EventTaskStatusChanged,
		Timestamp: b.clock(),
		Agent:     agent,
		Data: map[string]any{
			"task_id":        id,
			"blocking_issue": text,
		},
	})
	return nil
}

// ResolveBlockingIssue marks the issue at the given index resolved.
func (b *Blackboard) ResolveBlockingIssue(id string, index int, agent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if index < 0 || index >= len(ts.BlockingIssues) {
		return fmt.Errorf("task %s: blocking issue %d: %w", id, index, ErrNotFound)
	}
	now := b.clock()
	issue := &ts.BlockingIssues[index]
	issue.Resolved = true
	issue.ResolvedBy = agent
	issue.ResolvedAt = &now

	b.emitLocked(Event{
		Type:      EventTaskStatusChanged,
		Timestamp: now,
		Agent:     agent,
		Data: map[string]any{
			"task_id":        id,
			"resolved_issue": index,
		},
	})
	return nil
}
