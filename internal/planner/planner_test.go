package planner

import (
	"testing"

	"github.com/tessellate-ai/maestro/pkg/models"
)

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		query string
		want  Strategy
	}{
		{"build me a todo app", StrategyMVP},
		{"I need an MVP for invoicing", StrategyMVP},
		{"analyze the auth package", StrategyAnalysis},
		{"please review this module", StrategyAnalysis},
		{"audit our dependencies", StrategyAnalysis},
		{"refactor the storage layer", StrategyRefactoring},
		{"modernize the build", StrategyRefactoring},
		{"add pagination to the list endpoint", StrategyFeature},
		{"implement retry logic", StrategyFeature},
		{"make it faster", StrategyGeneric},
		// First match wins: mvp outranks the feature keywords.
		{"build an app and add login", StrategyMVP},
		// Whole words only: "addendum" is not "add".
		{"fix the addendum", StrategyGeneric},
	}
	for _, tc := range cases {
		if got := selectStrategy(tc.query); got != tc.want {
			t.Errorf("selectStrategy(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestDecomposeMVPShape(t *testing.T) {
	plan, err := Decompose("build a todo app", nil, Preferences{})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Strategy != StrategyMVP {
		t.Fatalf("strategy = %s", plan.Strategy)
	}
	if plan.DAG.Size() != 10 {
		t.Errorf("MVP template should have 10 tasks, got %d", plan.DAG.Size())
	}

	deploy := plan.DAG.Task("deployment")
	if deploy == nil {
		t.Fatal("deployment task missing")
	}
	if len(deploy.Dependencies) != 1 || deploy.Dependencies[0] != "testing" {
		t.Errorf("deployment should depend only on testing, got %v", deploy.Dependencies)
	}

	// Topological order must exist and start at requirements.
	order, err := plan.DAG.TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}
	if order[0] != "requirements-analysis" {
		t.Errorf("first task = %s", order[0])
	}
	if plan.Confidence <= 0.5 {
		t.Errorf("template match should beat generic confidence, got %f", plan.Confidence)
	}
	if plan.EstimatedDuration == 0 || len(plan.CriticalPath) == 0 {
		t.Errorf("critical path missing: %+v", plan)
	}
}

func TestDecomposeConsolidation(t *testing.T) {
	plan, err := Decompose("build a todo app", nil, Preferences{MaxTasks: 5})
	if err != nil {
		t.Fatal(err)
	}
	if plan.DAG.Size() != 5 {
		t.Fatalf("expected 5 tasks after consolidation, got %d", plan.DAG.Size())
	}

	// The merged backend task absorbed its siblings' effort at a single
	// discount over the group: 4+4+8 original points become 12.
	backend := plan.DAG.Task("database-schema")
	if backend == nil {
		t.Fatal("merged backend task missing")
	}
	if backend.Effort != 12 {
		t.Errorf("merged backend effort = %d, want 12", backend.Effort)
	}

	// The consolidated graph is still acyclic and ordered.
	if _, err := plan.DAG.TopologicalSort(); err != nil {
		t.Fatalf("consolidated DAG invalid: %v", err)
	}
}

func TestConsolidateDiscountsGroupOnce(t *testing.T) {
	tasks := []*models.Task{
		{ID: "schema", Title: "Schema", Category: "backend", Effort: 4},
		{ID: "api", Title: "API", Category: "backend", Effort: 4},
		{ID: "impl", Title: "Implementation", Category: "backend", Effort: 8},
	}
	out := consolidate(tasks, 1)
	if len(out) != 1 {
		t.Fatalf("expected 1 task, got %d", len(out))
	}
	// Pairwise discounting would yield 11; the group discount yields 12.
	if out[0].Effort != 12 {
		t.Errorf("merged effort = %d, want 12", out[0].Effort)
	}

	tiny := consolidate([]*models.Task{
		{ID: "a", Title: "A", Category: "docs", Effort: 1},
		{ID: "b", Title: "B", Category: "docs", Effort: 0},
	}, 1)
	if len(tiny) != 1 || tiny[0].Effort != 1 {
		t.Errorf("merged effort floor should be 1, got %+v", tiny)
	}
}

func TestDecomposeEmptyQuery(t *testing.T) {
	if _, err := Decompose("   ", nil, Preferences{}); err == nil {
		t.Fatal("empty query should fail")
	}
}

func TestDecomposeGenericFallback(t *testing.T) {
	plan, err := Decompose("make everything faster", nil, Preferences{})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Strategy != StrategyGeneric || plan.Confidence != 0.5 {
		t.Errorf("expected generic at 0.5, got %s at %f", plan.Strategy, plan.Confidence)
	}
	if plan.DAG.Size() != 3 {
		t.Errorf("generic template should have 3 tasks, got %d", plan.DAG.Size())
	}
}

func TestCriticalPathMatchesGraph(t *testing.T) {
	plan, err := Decompose("refactor the storage layer", nil, Preferences{})
	if err != nil {
		t.Fatal(err)
	}
	path, effort := plan.DAG.CriticalPath()
	if plan.EstimatedDuration != effort {
		t.Errorf("estimated duration %d != critical path effort %d", plan.EstimatedDuration, effort)
	}
	if len(path) != len(plan.CriticalPath) {
		t.Errorf("path mismatch: %v vs %v", path, plan.CriticalPath)
	}
}
