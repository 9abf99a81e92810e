package models

import "time"

// NotePriority indicates how urgently a shared note needs attention.
type NotePriority string

const (
	// PriorityLow marks informational notes with no urgency.
	PriorityLow NotePriority = "low"
	// PriorityMedium marks notes that should be read soon.
	PriorityMedium NotePriority = "medium"
	// PriorityHigh marks notes that affect in-flight work.
	PriorityHigh NotePriority = "high"
	// PriorityCritical marks notes that must be handled before proceeding.
	PriorityCritical NotePriority = "critical"
)

// Valid returns true if the priority is a known value.
func (p NotePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// NoteCategory classifies the intent of a shared note.
type NoteCategory string

const (
	// NoteInfo is a plain status or context note.
	NoteInfo NoteCategory = "info"
	// NoteWarning flags a potential problem.
	NoteWarning NoteCategory = "warning"
	// NoteError records a failure another agent should know about.
	NoteError NoteCategory = "error"
	// NoteQuestion asks another agent for input.
	NoteQuestion NoteCategory = "question"
	// NoteSuggestion proposes an approach without requiring action.
	NoteSuggestion NoteCategory = "suggestion"
	// NoteDecision records a decision other agents must respect.
	NoteDecision NoteCategory = "decision"
)

// Valid returns true if the category is a known value.
func (c NoteCategory) Valid() bool {
	switch c {
	case NoteInfo, NoteWarning, NoteError, NoteQuestion, NoteSuggestion, NoteDecision:
		return true
	default:
		return false
	}
}

// Acknowledgment records that an agent acted on a note requiring acknowledgment.
type Acknowledgment struct {
	// Agent is the name of the acknowledging agent.
	Agent string `json:"agent"`
	// Response carries an optional reply body.
	Response string `json:"response,omitempty"`
	// At is when the acknowledgment was recorded.
	At time.Time `json:"at"`
}

// Note is an inter-agent message stored on the blackboard.
type Note struct {
	// ID is the unique identifier for this note.
	ID string `json:"id"`
	// Author is the name of the agent that wrote the note.
	Author string `json:"author"`
	// Title is the short subject line.
	Title string `json:"title"`
	// Body is the note content.
	Body string `json:"body,omitempty"`
	// Priority indicates urgency.
	Priority NotePriority `json:"priority"`
	// Category classifies the note's intent.
	Category NoteCategory `json:"category"`
	// TargetAgents names the intended readers; empty means broadcast.
	TargetAgents []string `json:"target_agents,omitempty"`
	// RelatedTasks lists task IDs this note concerns.
	RelatedTasks []string `json:"related_tasks,omitempty"`
	// RelatedArtifacts lists artifact IDs this note concerns.
	RelatedArtifacts []string `json:"related_artifacts,omitempty"`
	// CreatedAt is when the note was stored.
	CreatedAt time.Time `json:"created_at"`
	// ReadBy is the set of agent names that have read the note.
	ReadBy []string `json:"read_by,omitempty"`
	// RequiresAck indicates targeted agents must acknowledge the note.
	RequiresAck bool `json:"requires_ack,omitempty"`
	// Acknowledgments records received acknowledgments.
	Acknowledgments []Acknowledgment `json:"acknowledgments,omitempty"`
}

// IsReadBy returns true if the given agent has read the note.
func (n *Note) IsReadBy(agent string) bool {
	for _, r := range n.ReadBy {
		if r == agent {
			return true
		}
	}
	return false
}

// IsTargeted returns true if the note is addressed to the given agent.
// A note with no target agents is a broadcast and targets everyone.
func (n *Note) IsTargeted(agent string) bool {
	if len(n.TargetAgents) == 0 {
		return true
	}
	for _, t := range n.TargetAgents {
		if t == agent {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	out := *n
	out.TargetAgents = append([]string(nil), n.TargetAgents...)
	out.RelatedTasks = append([]string(nil), n.RelatedTasks...)
	out.RelatedArtifacts = append([]string(nil), n.RelatedArtifacts...)
	out.ReadBy = append([]string(nil), n.ReadBy...)
	out.Acknowledgments = append([]Acknowledgment(nil), n.Acknowledgments...)
	return &out
}
