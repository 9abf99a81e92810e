package blackboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// Snapshot is a point-in-time copy of the blackboard's queryable state.
// Listener subscriptions are not part of a snapshot; restoring replaces
// records only.
type Snapshot struct {
	// Tasks holds the runtime task records.
	Tasks map[string]*models.TaskState `json:"tasks"`
	// Dependents holds the dependency transpose used for failure propagation.
	Dependents map[string][]string `json:"dependents"`
	// Artifacts holds the artifact records.
	Artifacts map[string]*models.Artifact `json:"artifacts"`
	// Notes holds the note records.
	Notes map[string]*models.Note `json:"notes"`
	// TakenAt is when the snapshot was captured.
	TakenAt time.Time `json:"taken_at"`
}

// Snapshot captures a deep copy of the current state.
func (b *Blackboard) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := &Snapshot{
		Tasks:      make(map[string]*models.TaskState, len(b.tasks)),
		Dependents: make(map[string][]string, len(b.dependents)),
		Artifacts:  make(map[string]*models.Artifact, len(b.artifacts)),
		Notes:      make(map[string]*models.Note, len(b.notes)),
		TakenAt:    b.clock(),
	}
	for id, ts := range b.tasks {
		snap.Tasks[id] = ts.Clone()
	}
	for id, deps := range b.dependents {
		snap.Dependents[id] = append([]string(nil), deps...)
	}
	for id, a := range b.artifacts {
		snap.Artifacts[id] = a.Clone()
	}
	for id, n := range b.notes {
		snap.Notes[id] = n.Clone()
	}
	return snap
}

// Restore replaces the blackboard's state with a snapshot's contents.
// Listener subscriptions survive a restore; no events are emitted.
func (b *Blackboard) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tasks = make(map[string]*models.TaskState, len(snap.Tasks))
	for id, ts := range snap.Tasks {
		b.tasks[id] = ts.Clone()
	}
	b.dependents = make(map[string][]string, len(snap.Dependents))
	for id, deps := range snap.Dependents {
		b.dependents[id] = append([]string(nil), deps...)
	}
	b.artifacts = make(map[string]*models.Artifact, len(snap.Artifacts))
	for id, a := range snap.Artifacts {
		b.artifacts[id] = a.Clone()
	}
	b.notes = make(map[string]*models.Note, len(snap.Notes))
	for id, n := range snap.Notes {
		b.notes[id] = n.Clone()
	}
	return nil
}

// Clear removes every record. Listener subscriptions survive.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = make(map[string]*models.TaskState)
	b.dependents = make(map[string][]string)
	b.artifacts = make(map[string]*models.Artifact)
	b.notes = make(map[string]*models.Note)
}

// Marshal serializes a snapshot to an opaque blob the host can persist.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot parses a blob produced by Snapshot.Marshal.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}
