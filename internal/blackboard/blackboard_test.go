package blackboard

import (
	"errors"
	"testing"

	"github.com/tessellate-ai/maestro/pkg/models"
)

func registerChain(t *testing.T, b *Blackboard) {
	t.Helper()
	b.RegisterTasks([]models.Task{
		{ID: "a", Title: "Task A", Effort: 3},
		{ID: "b", Title: "Task B", Effort: 2, Dependencies: []string{"a"}},
		{ID: "c", Title: "Task C", Effort: 1, Dependencies: []string{"b"}},
	})
}

func TestRegisterTasksInitialStatus(t *testing.T) {
	b := New()
	registerChain(t, b)

	a, err := b.GetTask("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != models.TaskStatusReady {
		t.Errorf("dependency-free task should start ready, got %s", a.Status)
	}

	bTask, _ := b.GetTask("b")
	if bTask.Status != models.TaskStatusPending {
		t.Errorf("gated task should start pending, got %s", bTask.Status)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	b := New()
	if _, err := b.GetTask("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletedSetsProgressAndEndTime(t *testing.T) {
	b := New()
	registerChain(t, b)

	if err := b.UpdateStatus("a", models.TaskStatusRunning, "builder", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.UpdateStatus("a", models.TaskStatusCompleted, "builder", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := b.GetTask("a")
	if a.Progress != 100 {
		t.Errorf("completed task should have progress 100, got %d", a.Progress)
	}
	if a.StartTime == nil || a.EndTime == nil {
		t.Fatal("completed task should have start and end times")
	}
	if a.EndTime.Before(*a.StartTime) {
		t.Error("end time should not precede start time")
	}
	if len(a.StatusHistory) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(a.StatusHistory))
	}
}

func TestFailurePropagatesBlocked(t *testing.T) {
	b := New()
	registerChain(t, b)

	if err := b.UpdateStatus("a", models.TaskStatusFailed, "builder", "compile error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"b", "c"} {
		ts, _ := b.GetTask(id)
		if ts.Status != models.TaskStatusBlocked {
			t.Errorf("task %s should be blocked after upstream failure, got %s", id, ts.Status)
		}
	}
	a, _ := b.GetTask("a")
	if a.Error != "compile error" {
		t.Errorf("failed task should record its error, got %q", a.Error)
	}
}

func TestFailureDoesNotBlockTerminalDependents(t *testing.T) {
	b := New()
	registerChain(t, b)

	// b already completed out of band; failure of a must not regress it.
	if err := b.UpdateStatus("b", models.TaskStatusCompleted, "builder", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.UpdateStatus("a", models.TaskStatusFailed, "builder", "boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ts, _ := b.GetTask("b")
	if ts.Status != models.TaskStatusCompleted {
		t.Errorf("terminal dependent should stay completed, got %s", ts.Status)
	}
}

func TestProgressAutoRules(t *testing.T) {
	b := New()
	registerChain(t, b)

	if err := b.UpdateProgress("a", 10, "builder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts, _ := b.GetTask("a")
	if ts.Status != models.TaskStatusRunning {
		t.Errorf("progress >= 1 should promote to running, got %s", ts.Status)
	}

	if err := b.UpdateProgress("a", 100, "builder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts, _ = b.GetTask("a")
	if ts.Status != models.TaskStatusCompleted {
		t.Errorf("progress 100 should promote running task to completed, got %s", ts.Status)
	}
}

func TestEveryWriteEmitsExactlyOneEvent(t *testing.T) {
	b := New()
	registerChain(t, b)

	var events []Event
	b.On(func(e Event) { events = append(events, e) })

	if err := b.UpdateStatus("a", models.TaskStatusRunning, "builder", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event for one transition, got %d", len(events))
	}

	events = nil
	// Failure of a mutates a, b, and c: exactly one event per record.
	if err := b.UpdateStatus("a", models.TaskStatusFailed, "builder", "boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events for failure cascade over 3 records, got %d", len(events))
	}
	if events[0].Data["task_id"] != "a" {
		t.Errorf("first event should be the failing task, got %v", events[0].Data)
	}
}

func TestPanickingListenerDoesNotAbortWrite(t *testing.T) {
	b := New()
	registerChain(t, b)

	b.On(func(Event) { panic("listener bug") })
	fired := false
	b.On(func(Event) { fired = true })

	if err := b.UpdateStatus("a", models.TaskStatusRunning, "builder", ""); err != nil {
		t.Fatalf("write should survive a panicking listener: %v", err)
	}
	if !fired {
		t.Error("later listeners should still be invoked")
	}
	ts, _ := b.GetTask("a")
	if ts.Status != models.TaskStatusRunning {
		t.Error("write should have been committed despite listener panic")
	}
}

func TestOffRemovesListener(t *testing.T) {
	b := New()
	registerChain(t, b)

	count := 0
	id := b.On(func(Event) { count++ })
	_ = b.UpdateStatus("a", models.TaskStatusRunning, "", "")
	b.Off(id)
	_ = b.UpdateStatus("a", models.TaskStatusCompleted, "", "")

	if count != 1 {
		t.Errorf("expected 1 delivered event after Off, got %d", count)
	}
}

func TestBlockingIssues(t *testing.T) {
	b := New()
	registerChain(t, b)

	if err := b.AddBlockingIssue("a", "missing API key", "builder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.ResolveBlockingIssue("a", 0, "operator"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.ResolveBlockingIssue("a", 5, "operator"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for bad index, got %v", err)
	}

	ts, _ := b.GetTask("a")
	if len(ts.BlockingIssues) != 1 || !ts.BlockingIssues[0].Resolved {
		t.Error("blocking issue should be recorded and resolved")
	}
	if ts.BlockingIssues[0].ResolvedBy != "operator" {
		t.Errorf("resolver should be recorded, got %q", ts.BlockingIssues[0].ResolvedBy)
	}
}
