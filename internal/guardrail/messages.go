package guardrail

import (
	"fmt"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// Sentinel is the fixed string that must terminate a strategic plan.
const Sentinel = "PLAN COMPLETE - READY TO PROCEED"

// MaxParetoItems caps the pareto file list.
const MaxParetoItems = 5

// MaxReasonChars caps each pareto justification.
const MaxReasonChars = 200

// MaxPlanTokens caps the strategic plan length in whitespace tokens.
const MaxPlanTokens = 350

// phaseDirectives are the model-facing instructions injected when the
// session enters a phase.
var phaseDirectives = map[models.Phase]string{
	models.PhasePareto: "Identify the files or modules where changes will have the " +
		"highest impact on this task. Respond with a JSON array of at most " +
		"5 objects, each with \"path\" and \"reason\" fields. Rank by impact " +
		"and quantify each reason (lines touched, callers affected, risk). " +
		"Keep each reason under 200 characters. Use temperature 0; do not " +
		"speculate beyond the evidence.",
	models.PhaseStrategic: "Write a first-person implementation plan in at most 350 tokens. " +
		"Cover: setup, ordered implementation steps, how you will test, " +
		"rollback if it goes wrong, and any open questions. " +
		"End the plan with the exact line: " + Sentinel,
	models.PhaseExecution: "Execute the plan step by step. For each step emit a " +
		"Thought (what you intend and why), an Action (the concrete tool " +
		"call or edit), and an Observation (what actually happened). " +
		"Do not skip steps and do not batch observations.",
}

// toolDirectives are the post-call guardrails keyed by tool name.
// Unknown tools produce no message.
var toolDirectives = map[string]string{
	"debugger": "Open every file named in the stack trace you just received " +
		"before proposing a fix.",
	"edit":  "Run the project's test command now to confirm the edit did not break anything.",
	"write": "Run the project's test command now to confirm the new file integrates cleanly.",
	"search": "Open the top search results and read the surrounding code " +
		"before acting on the matches.",
	"grep": "Open the top search results and read the surrounding code " +
		"before acting on the matches.",
}

// subAgentDirectives are the post-call guardrails keyed by sub-agent name.
var subAgentDirectives = map[string]string{
	"debugger": "Read the source files referenced by the debugger's findings " +
		"before continuing.",
	"planner": "Gather architectural context for the areas the revised plan " +
		"touches before executing it.",
}

// shellDirective branches on the exit code of a shell command.
func shellDirective(exitCode int) string {
	if exitCode == 0 {
		return "The command succeeded. Proceed to the next plan step."
	}
	return fmt.Sprintf("The command exited with code %d. Analyze the output, "+
		"adapt the approach, and retry before moving on.", exitCode)
}

// retryDirective tells the model a transient failure occurred and the same
// model will be retried.
func retryDirective(attempt, maxRetries int) string {
	return fmt.Sprintf("Transient provider failure. Retrying with the same model, "+
		"attempt %d of %d.", attempt, maxRetries)
}

// fallbackDirective tells the model the retry budget is exhausted and a
// secondary model takes over.
func fallbackDirective(maxRetries int) string {
	return fmt.Sprintf("Retries exhausted after %d attempts. Switching to the "+
		"designated fallback model.", maxRetries)
}
