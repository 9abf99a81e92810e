package guardrail

import (
	"errors"
	"strings"
	"testing"

	"github.com/tessellate-ai/maestro/pkg/models"
)

func TestTransitionSequence(t *testing.T) {
	m := New(DefaultConfig())

	for _, phase := range []models.Phase{
		models.PhaseMetadata, models.PhasePareto,
		models.PhaseStrategic, models.PhaseExecution,
	} {
		if err := m.Transition(phase); err != nil {
			t.Fatalf("transition to %s: %v", phase, err)
		}
	}
	if got := m.CurrentPhase(); got != models.PhaseExecution {
		t.Errorf("expected execution, got %s", got)
	}
	if len(m.History()) != 4 {
		t.Errorf("expected 4 transitions, got %d", len(m.History()))
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	cases := []struct {
		name  string
		setup []models.Phase
		to    models.Phase
	}{
		{"start at pareto", nil, models.PhasePareto},
		{"skip pareto", []models.Phase{models.PhaseMetadata}, models.PhaseStrategic},
		{"backwards", []models.Phase{models.PhaseMetadata, models.PhasePareto}, models.PhaseMetadata},
		{"past terminal", []models.Phase{
			models.PhaseMetadata, models.PhasePareto,
			models.PhaseStrategic, models.PhaseExecution,
		}, models.PhaseMetadata},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(DefaultConfig())
			for _, p := range tc.setup {
				if err := m.Transition(p); err != nil {
					t.Fatal(err)
				}
			}
			if err := m.Transition(tc.to); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestPhaseDirectivesEmitted(t *testing.T) {
	m := New(DefaultConfig())
	if err := m.Transition(models.PhaseMetadata); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(models.PhasePareto); err != nil {
		t.Fatal(err)
	}

	msgs := m.Pending()
	if len(msgs) != 1 {
		t.Fatalf("expected one directive after entering pareto, got %d", len(msgs))
	}
	if msgs[0].Type != models.GuardrailPhaseTransition || msgs[0].Phase != models.PhasePareto {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
	// Cursor advanced; nothing new pending.
	if again := m.Pending(); len(again) != 0 {
		t.Errorf("pending should drain, got %d", len(again))
	}
	// Full buffer is still intact.
	if len(m.Messages()) != 1 {
		t.Errorf("buffer should be append-only")
	}
}

func TestAfterToolKnownAndUnknown(t *testing.T) {
	m := New(DefaultConfig())

	m.AfterTool("debugger", 0)
	m.AfterTool("no-such-tool", 0)
	m.AfterTool("shell", 2)

	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages (unknown tool is a no-op), got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Body, "code 2") {
		t.Errorf("shell directive should carry the exit code: %q", msgs[1].Body)
	}
}

func TestAfterSubAgent(t *testing.T) {
	m := New(DefaultConfig())
	m.AfterSubAgent("planner")
	m.AfterSubAgent("no-such-agent")

	if len(m.Messages()) != 1 {
		t.Errorf("expected 1 message, got %d", len(m.Messages()))
	}
}

func TestRetryThenFallbackOrder(t *testing.T) {
	m := New(DefaultConfig())
	maxRetries := 3
	for n := 1; n <= maxRetries+1; n++ {
		m.Retry(n, maxRetries)
	}

	msgs := m.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 3 retry + 1 fallback, got %d", len(msgs))
	}
	for i := 0; i < 3; i++ {
		if msgs[i].Metadata["fallback"] == "true" {
			t.Errorf("message %d should be a retry, got fallback", i)
		}
	}
	if msgs[3].Metadata["fallback"] != "true" {
		t.Errorf("final message should be the fallback directive: %+v", msgs[3])
	}
}

func TestDisabledEmitsNothing(t *testing.T) {
	m := New(Config{Enabled: false})
	if err := m.Transition(models.PhaseMetadata); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(models.PhasePareto); err != nil {
		t.Fatal(err)
	}
	m.AfterTool("debugger", 0)
	m.Retry(1, 3)

	if len(m.Messages()) != 0 {
		t.Errorf("disabled manager must not emit, got %d", len(m.Messages()))
	}
	// Transitions are still validated and recorded.
	if m.CurrentPhase() != models.PhasePareto {
		t.Errorf("transitions should still advance when disabled")
	}
}

func TestClear(t *testing.T) {
	m := New(DefaultConfig())
	if err := m.Transition(models.PhaseMetadata); err != nil {
		t.Fatal(err)
	}
	m.Clear()
	if m.CurrentPhase() != "" || len(m.Messages()) != 0 {
		t.Errorf("clear should reset buffer and history")
	}
	// A fresh session can start again from metadata.
	if err := m.Transition(models.PhaseMetadata); err != nil {
		t.Errorf("restart after clear: %v", err)
	}
}
