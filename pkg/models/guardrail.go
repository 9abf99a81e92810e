package models

import "time"

// GuardrailType classifies a guardrail message.
type GuardrailType string

const (
	// GuardrailPhaseTransition is injected when the session enters a new phase.
	GuardrailPhaseTransition GuardrailType = "phase_transition"
	// GuardrailToolCall is injected after a tool or sub-agent call.
	GuardrailToolCall GuardrailType = "tool_call"
	// GuardrailValidation is injected when phase output fails validation.
	GuardrailValidation GuardrailType = "validation"
	// GuardrailRetry is injected before a retry or fallback attempt.
	GuardrailRetry GuardrailType = "retry"
)

// Valid returns true if the type is a known value.
func (t GuardrailType) Valid() bool {
	switch t {
	case GuardrailPhaseTransition, GuardrailToolCall, GuardrailValidation, GuardrailRetry:
		return true
	default:
		return false
	}
}

// GuardrailMessage is a synthetic control message injected into the next
// model turn. The buffer holding these messages is append-only.
type GuardrailMessage struct {
	// Type classifies the message.
	Type GuardrailType `json:"type"`
	// Phase is the session phase the message applies to.
	Phase Phase `json:"phase,omitempty"`
	// Body is the model-facing text.
	Body string `json:"body"`
	// Timestamp is when the message was emitted.
	Timestamp time.Time `json:"timestamp"`
	// Metadata carries structured context such as attempt numbers.
	Metadata map[string]string `json:"metadata,omitempty"`
}
