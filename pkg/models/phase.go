package models

import "time"

// Phase is a stage of the orchestration session.
// Phases advance monotonically: metadata, pareto, strategic, execution.
type Phase string

const (
	// PhaseMetadata assigns the session task ID and start timestamp.
	PhaseMetadata Phase = "metadata"
	// PhasePareto identifies the highest-impact files or modules.
	PhasePareto Phase = "pareto"
	// PhaseStrategic composes the implementation plan.
	PhaseStrategic Phase = "strategic"
	// PhaseExecution executes the plan step by step via the scheduler.
	PhaseExecution Phase = "execution"
)

// Valid returns true if the phase is a known value.
func (p Phase) Valid() bool {
	switch p {
	case PhaseMetadata, PhasePareto, PhaseStrategic, PhaseExecution:
		return true
	default:
		return false
	}
}

// PhaseTransition records one advance of the phase state machine.
type PhaseTransition struct {
	// From is the phase before the transition. Empty for the initial transition.
	From Phase `json:"from,omitempty"`
	// To is the phase entered.
	To Phase `json:"to"`
	// At is when the transition was validated.
	At time.Time `json:"at"`
}

// SessionOutcome is the terminal disposition of a session.
type SessionOutcome string

const (
	// OutcomeComplete indicates the session finished with tests passing.
	OutcomeComplete SessionOutcome = "TASK COMPLETE"
	// OutcomeBlocked indicates the session cannot proceed without help.
	OutcomeBlocked SessionOutcome = "BLOCKED"
	// OutcomeFailed indicates a phase failed validation or execution failed.
	OutcomeFailed SessionOutcome = "FAILED"
	// OutcomeCancelled indicates the session was cancelled externally.
	OutcomeCancelled SessionOutcome = "CANCELLED"
)
