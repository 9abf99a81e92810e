package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tessellate-ai/maestro/internal/blackboard"
	"github.com/tessellate-ai/maestro/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)

	started := time.Now().UTC().Truncate(time.Millisecond)
	sess := &Session{
		ID:        "task-100",
		Query:     "refactor the parser",
		StartedAt: started,
	}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := db.GetSession("task-100")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Query != "refactor the parser" {
		t.Errorf("query = %q", got.Query)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.FinishedAt != nil {
		t.Errorf("unfinished session should have nil finished_at")
	}

	if err := db.FinishSession("task-100", models.OutcomeComplete, "refactoring", 4200); err != nil {
		t.Fatalf("finish session: %v", err)
	}
	got, err = db.GetSession("task-100")
	if err != nil {
		t.Fatalf("get session after finish: %v", err)
	}
	if got.Outcome != models.OutcomeComplete {
		t.Errorf("outcome = %q", got.Outcome)
	}
	if got.Strategy != "refactoring" || got.DurationMs != 4200 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Errorf("finished session should have finished_at set")
	}
}

func TestFinishUnknownSession(t *testing.T) {
	db := openTestDB(t)
	if err := db.FinishSession("missing", models.OutcomeFailed, "", 0); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestGetUnknownSession(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetSession("missing"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC()
	for i, id := range []string{"task-1", "task-2", "task-3"} {
		err := db.CreateSession(&Session{
			ID:        id,
			Query:     "q",
			StartedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	sessions, err := db.ListSessions(2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "task-3" || sessions[1].ID != "task-2" {
		t.Errorf("wrong order: %s, %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	sess := &Session{ID: "task-snap", Query: "q", StartedAt: time.Now()}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	board := blackboard.New()
	board.RegisterTasks([]models.Task{
		{ID: "a", Title: "first", Effort: 3},
		{ID: "b", Title: "second", Effort: 5, Dependencies: []string{"a"}},
	})
	if err := board.UpdateStatus("a", models.TaskStatusCompleted, "agent-1", ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	if err := db.SaveSnapshot("task-snap", board.Snapshot()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	restored, err := db.LatestSnapshot("task-snap")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(restored.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(restored.Tasks))
	}
	if restored.Tasks["a"].Status != models.TaskStatusCompleted {
		t.Errorf("task a status = %q", restored.Tasks["a"].Status)
	}

	fresh := blackboard.New()
	if err := fresh.Restore(restored); err != nil {
		t.Fatalf("restore: %v", err)
	}
	ts, err := fresh.GetTask("b")
	if err != nil {
		t.Fatalf("task b after restore: %v", err)
	}
	if ts.Task.Title != "second" {
		t.Errorf("task b title = %q", ts.Task.Title)
	}
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	db := openTestDB(t)

	sess := &Session{ID: "task-multi", Query: "q", StartedAt: time.Now()}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	older := &blackboard.Snapshot{
		Tasks:   map[string]*models.TaskState{"old": {Task: models.Task{ID: "old"}}},
		TakenAt: time.Now().Add(-time.Minute),
	}
	newer := &blackboard.Snapshot{
		Tasks:   map[string]*models.TaskState{"new": {Task: models.Task{ID: "new"}}},
		TakenAt: time.Now(),
	}
	if err := db.SaveSnapshot("task-multi", older); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot("task-multi", newer); err != nil {
		t.Fatal(err)
	}

	got, err := db.LatestSnapshot("task-multi")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if _, ok := got.Tasks["new"]; !ok {
		t.Errorf("expected the newer snapshot, got tasks %v", got.Tasks)
	}
}

func TestEventLog(t *testing.T) {
	db := openTestDB(t)

	sess := &Session{ID: "task-ev", Query: "q", StartedAt: time.Now()}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	events := []blackboard.Event{
		{Type: blackboard.EventTaskStatusChanged, Timestamp: time.Now(), Agent: "agent-1",
			Data: map[string]any{"task_id": "a", "status": "running"}},
		{Type: blackboard.EventArtifactCreated, Timestamp: time.Now(), Agent: "agent-1",
			Data: map[string]any{"artifact_id": "art-1"}},
		{Type: blackboard.EventTaskStatusChanged, Timestamp: time.Now(),
			Data: map[string]any{"task_id": "a", "status": "completed"}},
	}
	for _, ev := range events {
		if err := db.AppendEvent("task-ev", ev); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	stored, err := db.ListEvents("task-ev")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 events, got %d", len(stored))
	}
	for i, ev := range stored {
		if ev.Seq != i+1 {
			t.Errorf("event %d seq = %d", i, ev.Seq)
		}
	}
	if stored[0].Type != blackboard.EventTaskStatusChanged || stored[0].Agent != "agent-1" {
		t.Errorf("unexpected first event: %+v", stored[0])
	}
	if stored[2].Data["status"] != "completed" {
		t.Errorf("unexpected last event data: %v", stored[2].Data)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := openTestDB(t)

	sess := &Session{ID: "task-del", Query: "q", StartedAt: time.Now()}
	if err := db.CreateSession(sess); err != nil {
		t.Fatal(err)
	}
	snap := &blackboard.Snapshot{Tasks: map[string]*models.TaskState{}, TakenAt: time.Now()}
	if err := db.SaveSnapshot("task-del", snap); err != nil {
		t.Fatal(err)
	}
	ev := blackboard.Event{Type: blackboard.EventNoteCreated, Timestamp: time.Now(), Data: map[string]any{}}
	if err := db.AppendEvent("task-del", ev); err != nil {
		t.Fatal(err)
	}

	if _, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, "task-del"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.LatestSnapshot("task-del"); err == nil {
		t.Error("snapshots should cascade")
	}
	stored, err := db.ListEvents("task-del")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("events should cascade, got %d", len(stored))
	}
}
