// Package planner converts a natural-language request into a validated
// task DAG using fixed strategy templates.
package planner

import (
	"fmt"
	"log"
	"strings"

	"github.com/tessellate-ai/maestro/internal/graph"
	"github.com/tessellate-ai/maestro/pkg/models"
)

// Preferences tunes plan shape.
type Preferences struct {
	// MaxTasks caps the plan size; excess tasks are consolidated.
	// Zero means unlimited.
	MaxTasks int
	// DetailLevel is a free-form hint recorded in the reasoning.
	DetailLevel string
	// Parallelism is a free-form hint recorded in the reasoning.
	Parallelism string
}

// Plan is the result of decomposing a request.
type Plan struct {
	// DAG is the validated dependency graph, tasks in pending state.
	DAG *graph.TaskDAG
	// Strategy is the template that produced the plan.
	Strategy Strategy
	// Confidence is the planner's self-assessment in [0,1].
	Confidence float64
	// Reasoning explains the strategy choice in one or two sentences.
	Reasoning string
	// EstimatedDuration is the summed effort along the critical path.
	EstimatedDuration int
	// CriticalPath is the heaviest dependency chain.
	CriticalPath []string
}

// Decompose builds a plan for the query. Available agents inform the
// reasoning only; task skeletons are fixed per strategy.
func Decompose(query string, agents []*models.AgentDescriptor, prefs Preferences) (*Plan, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	strategy := selectStrategy(query)
	tasks := skeleton(strategy)
	tasks = consolidate(tasks, prefs.MaxTasks)

	dag, err := graph.Build(tasks, query, string(strategy))
	if err != nil {
		return nil, fmt.Errorf("plan for strategy %s: %w", strategy, err)
	}

	path, totalEffort := dag.CriticalPath()
	plan := &Plan{
		DAG:               dag,
		Strategy:          strategy,
		Confidence:        confidence[strategy],
		Reasoning:         reasoning(strategy, query, len(tasks), len(agents), prefs),
		EstimatedDuration: totalEffort,
		CriticalPath:      path,
	}
	log.Printf("[planner] strategy=%s tasks=%d critical-path=%d", strategy, len(tasks), totalEffort)
	return plan, nil
}

func reasoning(strategy Strategy, query string, tasks, agents int, prefs Preferences) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Selected the %s template from the request wording; planned %d task(s)", strategy, tasks)
	if agents > 0 {
		fmt.Fprintf(&sb, " across %d available agent(s)", agents)
	}
	sb.WriteString(".")
	if prefs.MaxTasks > 0 {
		fmt.Fprintf(&sb, " Plan size capped at %d.", prefs.MaxTasks)
	}
	if prefs.DetailLevel != "" {
		fmt.Fprintf(&sb, " Detail level: %s.", prefs.DetailLevel)
	}
	return sb.String()
}
