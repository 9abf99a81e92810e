package blackboard

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// CreateNote stores a shared note and returns its ID.
// Empty priority defaults to medium and empty category to info.
func (b *Blackboard) CreateNote(note *models.Note) (string, error) {
	if note == nil || note.Author == "" || note.Title == "" {
		return "", fmt.Errorf("invalid note: author and title are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := note.Clone()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	if n.Category == "" {
		n.Category = models.NoteInfo
	}
	if !n.Priority.Valid() {
		return "", fmt.Errorf("invalid note priority %q", n.Priority)
	}
	if !n.Category.Valid() {
		return "", fmt.Errorf("invalid note category %q", n.Category)
	}
	n.CreatedAt = b.clock()
	b.notes[n.ID] = n

	b.emitLocked(Event{
		Type:      EventNoteCreated,
		Timestamp: n.CreatedAt,
		Agent:     n.Author,
		Data: map[string]any{
			"note_id":  n.ID,
			"category": n.Category,
			"priority": n.Priority,
		},
	})
	return n.ID, nil
}

// MarkNoteRead records that an agent has read a note. Reading twice is a
// no-op and emits no second event.
func (b *Blackboard) MarkNoteRead(id, agent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if n.IsReadBy(agent) {
		return nil
	}
	n.ReadBy = append(n.ReadBy, agent)

	b.emitLocked(Event{
		Type:      EventNoteUpdated,
		Timestamp: b.clock(),
		Agent:     agent,
		Data: map[string]any{
			"note_id": id,
			"read_by": agent,
		},
	})
	return nil
}

// AckNote records an acknowledgment for a note. Acknowledging implies
// reading: the agent is added to ReadBy within the same operation.
func (b *Blackboard) AckNote(id, agent, response string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if !n.IsReadBy(agent) {
		n.ReadBy = append(n.ReadBy, agent)
	}
	n.Acknowledgments = append(n.Acknowledgments, models.Acknowledgment{
		Agent:    agent,
		Response: response,
		At:       b.clock(),
	})

	b.emitLocked(Event{
		Type:      EventNoteUpdated,
		Timestamp: b.clock(),
		Agent:     agent,
		Data: map[string]any{
			"note_id": id,
			"acked":   agent,
		},
	})
	return nil
}

// NotesForAgent returns copies of notes addressed to the given agent,
// including broadcasts. With unreadOnly set, notes the agent has already
// read are filtered out.
func (b *Blackboard) NotesForAgent(agent string, unreadOnly bool) []*models.Note {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*models.Note
	for _, n := range b.notes {
		if !n.IsTargeted(agent) || n.Author == agent {
			continue
		}
		if unreadOnly && n.IsReadBy(agent) {
			continue
		}
		out = append(out, n.Clone())
	}
	return out
}

// GetNote returns a copy of the note with the given ID.
func (b *Blackboard) GetNote(id string) (*models.Note, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	return n.Clone(), nil
}

// ListNotes returns copies of all stored notes.
func (b *Blackboard) ListNotes() []*models.Note {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Note, 0, len(b.notes))
	for _, n := range b.notes {
		out = append(out, n.Clone())
	}
	return out
}
