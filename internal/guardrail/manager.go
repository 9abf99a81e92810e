// Package guardrail validates the session's phase transitions and
// synthesizes the control messages injected into subsequent model turns.
package guardrail

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// ErrInvalidTransition indicates a phase transition outside the allowed set.
var ErrInvalidTransition = errors.New("invalid phase transition")

// allowedTransitions is the exhaustive set of legal phase advances.
// The empty from-phase admits only the initial metadata entry;
// execution is terminal.
var allowedTransitions = map[models.Phase]models.Phase{
	"":                    models.PhaseMetadata,
	models.PhaseMetadata:  models.PhasePareto,
	models.PhasePareto:    models.PhaseStrategic,
	models.PhaseStrategic: models.PhaseExecution,
}

// Config toggles guardrail behavior.
type Config struct {
	// Enabled gates all message emission. Transitions are still validated
	// when disabled.
	Enabled bool
	// PhaseTransitionMessages emits a directive on each phase entry.
	PhaseTransitionMessages bool
	// ToolCallValidation emits post-call directives for tools and sub-agents.
	ToolCallValidation bool
	// RetryEnabled emits retry and fallback directives.
	RetryEnabled bool
}

// DefaultConfig enables every guardrail class.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		PhaseTransitionMessages: true,
		ToolCallValidation:      true,
		RetryEnabled:            true,
	}
}

// Manager owns the transition history and the append-only message buffer.
// Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	buffer   []models.GuardrailMessage
	history  []models.PhaseTransition
	consumed int
}

// New creates a Manager with the given configuration.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Transition validates and records an advance to the given phase,
// emitting the phase directive for the entered phase.
func (m *Manager) Transition(to models.Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.currentPhaseLocked()
	if allowedTransitions[from] != to {
		if from == "" {
			return fmt.Errorf("%w: session must start at %s, not %s",
				ErrInvalidTransition, models.PhaseMetadata, to)
		}
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	m.history = append(m.history, models.PhaseTransition{
		From: from,
		To:   to,
		At:   time.Now(),
	})
	log.Printf("[guardrail] phase %s entered", to)

	if directive, ok := phaseDirectives[to]; ok && m.emitPhase() {
		m.appendLocked(models.GuardrailMessage{
			Type:  models.GuardrailPhaseTransition,
			Phase: to,
			Body:  directive,
		})
	}
	return nil
}

// CurrentPhase returns the last entered phase, or empty before metadata.
func (m *Manager) CurrentPhase() models.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPhaseLocked()
}

func (m *Manager) currentPhaseLocked() models.Phase {
	if len(m.history) == 0 {
		return ""
	}
	return m.history[len(m.history)-1].To
}

// History returns a copy of the transition log.
func (m *Manager) History() []models.PhaseTransition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PhaseTransition, len(m.history))
	copy(out, m.history)
	return out
}

// AfterTool emits the post-call directive for a tool. Unknown tools are a
// no-op. Shell commands branch on the exit code instead of the name table.
func (m *Manager) AfterTool(tool string, exitCode int) {
	if !m.emitTool() {
		return
	}
	var body string
	if tool == "shell" {
		body = shellDirective(exitCode)
	} else if d, ok := toolDirectives[tool]; ok {
		body = d
	} else {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(models.GuardrailMessage{
		Type:     models.GuardrailToolCall,
		Phase:    m.currentPhaseLocked(),
		Body:     body,
		Metadata: map[string]string{"tool": tool},
	})
}

// AfterSubAgent emits the post-call directive for a sub-agent. Unknown
// sub-agents are a no-op.
func (m *Manager) AfterSubAgent(agent string) {
	if !m.emitTool() {
		return
	}
	d, ok := subAgentDirectives[agent]
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(models.GuardrailMessage{
		Type:     models.GuardrailToolCall,
		Phase:    m.currentPhaseLocked(),
		Body:     d,
		Metadata: map[string]string{"sub_agent": agent},
	})
}

// ValidationFailure emits a directive describing why a phase output was
// rejected, so the retried turn can correct it.
func (m *Manager) ValidationFailure(phase models.Phase, problem string) {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(models.GuardrailMessage{
		Type:  models.GuardrailValidation,
		Phase: phase,
		Body:  "Your previous output was rejected: " + problem + " Produce a corrected output.",
	})
}

// Retry emits the attempt-n directive when n is within the retry budget
// and the single fallback directive once n exceeds it.
func (m *Manager) Retry(attempt, maxRetries int) {
	if !m.emitRetry() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := models.GuardrailMessage{
		Type:  models.GuardrailRetry,
		Phase: m.currentPhaseLocked(),
		Metadata: map[string]string{
			"attempt": strconv.Itoa(attempt),
		},
	}
	if attempt <= maxRetries {
		msg.Body = retryDirective(attempt, maxRetries)
	} else {
		msg.Body = fallbackDirective(maxRetries)
		msg.Metadata["fallback"] = "true"
	}
	m.appendLocked(msg)
}

// Pending returns the messages emitted since the previous Pending call.
// The buffer itself is append-only; consumption only advances a cursor.
func (m *Manager) Pending() []models.GuardrailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GuardrailMessage, len(m.buffer)-m.consumed)
	copy(out, m.buffer[m.consumed:])
	m.consumed = len(m.buffer)
	return out
}

// Messages returns a copy of the full buffer in emission order.
func (m *Manager) Messages() []models.GuardrailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GuardrailMessage, len(m.buffer))
	copy(out, m.buffer)
	return out
}

// Clear resets the buffer and the transition history.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = nil
	m.history = nil
	m.consumed = 0
}

func (m *Manager) appendLocked(msg models.GuardrailMessage) {
	msg.Timestamp = time.Now()
	m.buffer = append(m.buffer, msg)
}

func (m *Manager) emitPhase() bool {
	return m.cfg.Enabled && m.cfg.PhaseTransitionMessages
}

func (m *Manager) emitTool() bool {
	return m.cfg.Enabled && m.cfg.ToolCallValidation
}

func (m *Manager) emitRetry() bool {
	return m.cfg.Enabled && m.cfg.RetryEnabled
}
