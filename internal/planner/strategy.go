package planner

import (
	"regexp"
	"strings"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// Strategy names a planning template.
type Strategy string

const (
	// StrategyMVP plans a full product skeleton from scratch.
	StrategyMVP Strategy = "mvp"
	// StrategyAnalysis plans a read-only investigation.
	StrategyAnalysis Strategy = "analysis"
	// StrategyRefactoring plans a behavior-preserving restructure.
	StrategyRefactoring Strategy = "refactoring"
	// StrategyFeature plans an incremental addition.
	StrategyFeature Strategy = "feature"
	// StrategyGeneric is the fallback template.
	StrategyGeneric Strategy = "generic"
)

var queryWordRe = regexp.MustCompile(`[a-z]+`)

// selectStrategy picks a template from whole-word signals in the query.
// First match wins in the order: mvp, analysis, refactoring, feature.
func selectStrategy(query string) Strategy {
	words := make(map[string]bool)
	for _, w := range queryWordRe.FindAllString(strings.ToLower(query), -1) {
		words[w] = true
	}

	if words["mvp"] || (words["build"] && (words["app"] || words["application"])) {
		return StrategyMVP
	}
	if words["analyze"] || words["analyse"] || words["review"] || words["audit"] {
		return StrategyAnalysis
	}
	if words["refactor"] || words["restructure"] || words["modernize"] {
		return StrategyRefactoring
	}
	if words["add"] || words["implement"] || words["create"] {
		return StrategyFeature
	}
	return StrategyGeneric
}

// confidence is the planner's self-assessed confidence per strategy.
// Template matches score higher than the generic fallback.
var confidence = map[Strategy]float64{
	StrategyMVP:         0.85,
	StrategyAnalysis:    0.75,
	StrategyRefactoring: 0.75,
	StrategyFeature:     0.75,
	StrategyGeneric:     0.5,
}

// skeleton returns the fixed task template for a strategy. Efforts are
// relative points in 1-10; dependencies reference earlier template tasks.
func skeleton(strategy Strategy) []*models.Task {
	switch strategy {
	case StrategyMVP:
		return []*models.Task{
			{ID: "requirements-analysis", Title: "Analyze requirements", Category: "planning", Effort: 3,
				ExpectedOutputs: []string{"requirements.md"}},
			{ID: "architecture-design", Title: "Design the architecture", Category: "planning", Effort: 5,
				Dependencies:    []string{"requirements-analysis"},
				ExpectedOutputs: []string{"architecture.md"}},
			{ID: "database-schema", Title: "Define the database schema", Category: "backend", Effort: 4,
				Dependencies:    []string{"architecture-design"},
				ExpectedOutputs: []string{"schema.sql"}},
			{ID: "api-design", Title: "Design the API surface", Category: "backend", Effort: 4,
				Dependencies:    []string{"architecture-design"},
				ExpectedOutputs: []string{"api.md"}},
			{ID: "backend-implementation", Title: "Implement the backend", Category: "backend", Effort: 8,
				Dependencies: []string{"database-schema", "api-design"}},
			{ID: "frontend-setup", Title: "Scaffold the frontend", Category: "frontend", Effort: 3,
				Dependencies: []string{"architecture-design"}},
			{ID: "ui-components", Title: "Build the UI components", Category: "frontend", Effort: 6,
				Dependencies: []string{"frontend-setup"}},
			{ID: "frontend-integration", Title: "Wire the frontend to the API", Category: "frontend", Effort: 5,
				Dependencies: []string{"ui-components", "backend-implementation"}},
			{ID: "testing", Title: "Test the full stack", Category: "testing", Effort: 5,
				Dependencies: []string{"frontend-integration"}},
			{ID: "deployment", Title: "Deploy", Category: "deployment", Effort: 3,
				Dependencies: []string{"testing"}},
		}

	case StrategyAnalysis:
		return []*models.Task{
			{ID: "scope-survey", Title: "Survey the scope", Category: "planning", Effort: 2},
			{ID: "code-inspection", Title: "Inspect the code in depth", Category: "analysis", Effort: 6,
				Dependencies: []string{"scope-survey"}},
			{ID: "dependency-audit", Title: "Audit dependencies", Category: "analysis", Effort: 4,
				Dependencies: []string{"scope-survey"}},
			{ID: "findings-report", Title: "Write the findings report", Category: "reporting", Effort: 3,
				Dependencies:    []string{"code-inspection", "dependency-audit"},
				ExpectedOutputs: []string{"findings.md"}},
		}

	case StrategyRefactoring:
		return []*models.Task{
			{ID: "baseline-tests", Title: "Establish baseline tests", Category: "testing", Effort: 4},
			{ID: "refactor-plan", Title: "Plan the restructure", Category: "planning", Effort: 3},
			{ID: "restructure", Title: "Apply the restructure", Category: "refactor", Effort: 7,
				Dependencies: []string{"baseline-tests", "refactor-plan"}},
			{ID: "regression-tests", Title: "Verify no regressions", Category: "testing", Effort: 4,
				Dependencies: []string{"restructure"}},
			{ID: "cleanup", Title: "Remove dead code", Category: "refactor", Effort: 2,
				Dependencies: []string{"regression-tests"}},
		}

	case StrategyFeature:
		return []*models.Task{
			{ID: "feature-spec", Title: "Specify the feature", Category: "planning", Effort: 2},
			{ID: "implementation", Title: "Implement the feature", Category: "backend", Effort: 6,
				Dependencies: []string{"feature-spec"}},
			{ID: "feature-tests", Title: "Test the feature", Category: "testing", Effort: 3,
				Dependencies: []string{"implementation"}},
			{ID: "documentation", Title: "Document the feature", Category: "docs", Effort: 2,
				Dependencies: []string{"implementation"}},
		}

	default:
		return []*models.Task{
			{ID: "investigate", Title: "Investigate the request", Category: "planning", Effort: 2},
			{ID: "execute", Title: "Carry out the work", Category: "general", Effort: 5,
				Dependencies: []string{"investigate"}},
			{ID: "verify", Title: "Verify the outcome", Category: "testing", Effort: 3,
				Dependencies: []string{"execute"}},
		}
	}
}
