package blackboard

import (
	"log"
	"time"
)

// EventType identifies what kind of change an event describes.
type EventType string

const (
	// EventTaskStatusChanged fires on any task record mutation.
	EventTaskStatusChanged EventType = "task-status-changed"
	// EventArtifactCreated fires when an artifact is first stored.
	EventArtifactCreated EventType = "artifact-created"
	// EventArtifactUpdated fires on artifact modification.
	EventArtifactUpdated EventType = "artifact-updated"
	// EventNoteCreated fires when a note is stored.
	EventNoteCreated EventType = "note-created"
	// EventNoteUpdated fires when a note is read or acknowledged.
	EventNoteUpdated EventType = "note-updated"
)

// Event describes a single blackboard mutation.
type Event struct {
	// Type identifies the kind of change.
	Type EventType
	// Timestamp is when the change was committed.
	Timestamp time.Time
	// Agent is the agent that caused the change, if any.
	Agent string
	// Data carries change-specific fields (task_id, artifact_id, ...).
	Data map[string]any
}

// Listener receives blackboard events. Listeners are invoked synchronously
// from the write path while the store lock is held, so they must not call
// back into the blackboard.
type Listener func(Event)

// On subscribes a listener and returns its subscription ID.
func (b *Blackboard) On(fn Listener) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.listeners[id] = fn
	return id
}

// Off removes a subscription. Unknown IDs are ignored.
func (b *Blackboard) Off(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, id)
}

// emitLocked delivers an event to every listener. A panicking listener is
// logged and skipped; it never cancels the write that produced the event.
// Caller must hold b.mu.
func (b *Blackboard) emitLocked(event Event) {
	for id, fn := range b.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[blackboard] listener %d panicked on %s event: %v", id, event.Type, r)
				}
			}()
			fn(event)
		}()
	}
}
