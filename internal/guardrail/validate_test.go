package guardrail

import (
	"strings"
	"testing"
)

func TestParsePareto(t *testing.T) {
	raw := `Here is the ranking:
[
  {"path": "internal/scheduler/executor.go", "reason": "dispatch loop, 12 callers"},
  {"path": "internal/blackboard/blackboard.go", "reason": "every write funnels through it"}
]`
	items, err := ParsePareto(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Path != "internal/scheduler/executor.go" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestParsePareto_Rejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no list", "there is nothing to change"},
		{"too many", `[{"path":"a","reason":"r"},{"path":"b","reason":"r"},{"path":"c","reason":"r"},
			{"path":"d","reason":"r"},{"path":"e","reason":"r"},{"path":"f","reason":"r"}]`},
		{"missing path", `[{"reason":"r"}]`},
		{"missing reason", `[{"path":"a"}]`},
		{"reason too long", `[{"path":"a","reason":"` + strings.Repeat("x", 201) + `"}]`},
		{"empty list", `[]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePareto(tc.raw); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

func TestParseStrategicFreeText(t *testing.T) {
	raw := "I will first add the parser, then wire it into the loader, " +
		"then cover both with table tests. Rollback: revert the commit.\n" +
		Sentinel
	plan, err := ParseStrategic(raw)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Proceed != Sentinel {
		t.Errorf("proceed = %q", plan.Proceed)
	}
	if strings.Contains(plan.Plan, Sentinel) {
		t.Errorf("plan text should not retain the sentinel")
	}
}

func TestParseStrategicJSON(t *testing.T) {
	raw := `{"plan": "I will refactor the loader.", "proceed": "` + Sentinel + `"}`
	if _, err := ParseStrategic(raw); err != nil {
		t.Fatal(err)
	}

	bad := `{"plan": "I will refactor the loader.", "proceed": "DONE"}`
	if _, err := ParseStrategic(bad); err == nil {
		t.Error("wrong proceed value should be rejected")
	}
}

func TestParseStrategicTokenBudget(t *testing.T) {
	raw := strings.Repeat("word ", 360) + Sentinel
	if _, err := ParseStrategic(raw); err == nil {
		t.Error("over-budget plan should be rejected")
	}
}

func TestParseStrategicMissingSentinel(t *testing.T) {
	if _, err := ParseStrategic("I will do the thing."); err == nil {
		t.Error("plan without sentinel should be rejected")
	}
}

func TestParseExecution(t *testing.T) {
	raw := `[
  {"thought": "the test fails on nil input", "action": "add a nil check", "observation": "test passes"},
  {"thought": "docs are stale", "action": "update README", "observation": "done"}
]`
	steps, err := ParseExecution(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(steps))
	}

	if _, err := ParseExecution(`[{"thought": "t", "action": "a"}]`); err == nil {
		t.Error("step without observation should be rejected")
	}
}

func TestTokenCount(t *testing.T) {
	if n := TokenCount("one two  three\nfour"); n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}
