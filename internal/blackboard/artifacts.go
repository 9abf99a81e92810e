package blackboard

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// ArtifactDelta describes a partial artifact update. Nil fields are left
// untouched; non-nil fields replace the stored value.
type ArtifactDelta struct {
	// Name replaces the artifact name.
	Name *string
	// Path replaces the filesystem location.
	Path *string
	// Content replaces the inline body.
	Content *string
	// Summary replaces the short description.
	Summary *string
	// Size replaces the byte size.
	Size *int64
	// Tags replaces the tag list.
	Tags []string
	// Metadata entries are merged into the stored metadata.
	Metadata map[string]string
}

// CreateArtifact stores a new artifact and returns its ID.
// An empty ID is assigned a fresh UUID. The artifact must satisfy the
// structural invariant (known type, path or content populated). If the
// creating task is registered, the artifact ID is recorded on it within the
// same operation.
func (b *Blackboard) CreateArtifact(artifact *models.Artifact) (string, error) {
	if artifact == nil || !artifact.Valid() {
		return "", fmt.Errorf("invalid artifact: type and path-or-content are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a := artifact.Clone()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := b.clock()
	a.CreatedAt = now
	a.UpdatedAt = now
	b.artifacts[a.ID] = a

	if ts, ok := b.tasks[a.CreatedBy]; ok {
		ts.Artifacts = append(ts.Artifacts, a.ID)
	}

	b.emitLocked(Event{
		Type:      EventArtifactCreated,
		Timestamp: now,
		Agent:     a.CreatedBy,
		Data: map[string]any{
			"artifact_id": a.ID,
			"name":        a.Name,
			"type":        a.Type,
		},
	})
	return a.ID, nil
}

// UpdateArtifact applies a delta to an existing artifact.
// Returns false if the artifact does not exist. Concurrent updates to the
// same ID are serialized; the last writer wins and each write emits its own
// artifact-updated event.
func (b *Blackboard) UpdateArtifact(id string, delta ArtifactDelta, agent string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.artifacts[id]
	if !ok {
		return false
	}

	if delta.Name != nil {
		a.Name = *delta.Name
	}
	if delta.Path != nil {
		a.Path = *delta.Path
	}
	if delta.Content != nil {
		a.Content = *delta.Content
	}
	if delta.Summary != nil {
		a.Summary = *delta.Summary
	}
	if delta.Size != nil {
		a.Size = *delta.Size
	}
	if delta.Tags != nil {
		a.Tags = append([]string(nil), delta.Tags...)
	}
	if len(delta.Metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]string, len(delta.Metadata))
		}
		for k, v := range delta.Metadata {
			a.Metadata[k] = v
		}
	}
	a.UpdatedAt = b.clock()

	b.emitLocked(Event{
		Type:      EventArtifactUpdated,
		Timestamp: a.UpdatedAt,
		Agent:     agent,
		Data: map[string]any{
			"artifact_id": id,
		},
	})
	return true
}

// GetArtifact returns a copy of the artifact with the given ID.
func (b *Blackboard) GetArtifact(id string) (*models.Artifact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}

// ListArtifactsByTask returns copies of artifacts created by the given task.
func (b *Blackboard) ListArtifactsByTask(taskID string) []*models.Artifact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*models.Artifact
	for _, a := range b.artifacts {
		if a.CreatedBy == taskID {
			out = append(out, a.Clone())
		}
	}
	return out
}

// ListArtifacts returns copies of all stored artifacts.
func (b *Blackboard) ListArtifacts() []*models.Artifact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Artifact, 0, len(b.artifacts))
	for _, a := range b.artifacts {
		out = append(out, a.Clone())
	}
	return out
}
