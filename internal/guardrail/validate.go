package guardrail

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParetoItem is one entry of the pareto file ranking.
type ParetoItem struct {
	// Path is the file or module to focus on.
	Path string `json:"path"`
	// Reason is the quantified justification for its impact.
	Reason string `json:"reason"`
}

// StrategicPlan is the parsed strategic phase output.
type StrategicPlan struct {
	// Plan is the first-person implementation plan text.
	Plan string `json:"plan"`
	// Proceed must equal the sentinel for the plan to be accepted.
	Proceed string `json:"proceed"`
}

// ExecutionStep is one Thought, Action, Observation triple.
type ExecutionStep struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	Observation string `json:"observation"`
}

// TokenCount approximates a token count as whitespace-separated fields.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}

// ParsePareto extracts and validates the pareto ranking from raw model
// output. The output must contain a JSON array of at most MaxParetoItems
// objects, each with a path and a bounded reason.
func ParsePareto(raw string) ([]ParetoItem, error) {
	blob, err := extractJSON(raw, '[', ']')
	if err != nil {
		return nil, fmt.Errorf("pareto output: %w", err)
	}
	var items []ParetoItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, fmt.Errorf("pareto output is not a valid list: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("pareto output is empty")
	}
	if len(items) > MaxParetoItems {
		return nil, fmt.Errorf("pareto output has %d items, limit is %d", len(items), MaxParetoItems)
	}
	for i, item := range items {
		if item.Path == "" {
			return nil, fmt.Errorf("pareto item %d is missing a path", i)
		}
		if item.Reason == "" {
			return nil, fmt.Errorf("pareto item %d (%s) is missing a reason", i, item.Path)
		}
		if len(item.Reason) > MaxReasonChars {
			return nil, fmt.Errorf("pareto item %d (%s) reason exceeds %d characters",
				i, item.Path, MaxReasonChars)
		}
	}
	return items, nil
}

// ParseStrategic validates the strategic phase output. A JSON object with
// a proceed field is accepted when the field equals the sentinel; free
// text is accepted when it ends with the sentinel line. Either form must
// fit the token budget.
func ParseStrategic(raw string) (*StrategicPlan, error) {
	trimmed := strings.TrimSpace(raw)
	if TokenCount(trimmed) > MaxPlanTokens {
		return nil, fmt.Errorf("strategic plan exceeds %d tokens", MaxPlanTokens)
	}

	if blob, err := extractJSON(trimmed, '{', '}'); err == nil {
		var plan StrategicPlan
		if err := json.Unmarshal([]byte(blob), &plan); err == nil && plan.Proceed != "" {
			if plan.Proceed != Sentinel {
				return nil, fmt.Errorf("strategic plan proceed field %q does not match the sentinel", plan.Proceed)
			}
			return &plan, nil
		}
	}

	if !strings.HasSuffix(trimmed, Sentinel) {
		return nil, fmt.Errorf("strategic plan does not end with the sentinel")
	}
	return &StrategicPlan{
		Plan:    strings.TrimSpace(strings.TrimSuffix(trimmed, Sentinel)),
		Proceed: Sentinel,
	}, nil
}

// ParseExecution validates an execution trace: a JSON list in which every
// element carries a thought, an action, and an observation.
func ParseExecution(raw string) ([]ExecutionStep, error) {
	blob, err := extractJSON(raw, '[', ']')
	if err != nil {
		return nil, fmt.Errorf("execution output: %w", err)
	}
	var steps []ExecutionStep
	if err := json.Unmarshal([]byte(blob), &steps); err != nil {
		return nil, fmt.Errorf("execution output is not a valid list: %w", err)
	}
	for i, s := range steps {
		if s.Thought == "" || s.Action == "" || s.Observation == "" {
			return nil, fmt.Errorf("execution step %d is missing thought, action, or observation", i)
		}
	}
	return steps, nil
}

// extractJSON returns the outermost open..close span of raw. Model output
// often wraps JSON in prose or code fences.
func extractJSON(raw string, open, close byte) (string, error) {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start < 0 || end <= start {
		return "", fmt.Errorf("no %c...%c block found", open, close)
	}
	return raw[start : end+1], nil
}
