package scheduler

import (
	"encoding/json"
	"strings"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// parsedResponse is the structured payload an agent may embed in its
// response as a JSON object.
type parsedResponse struct {
	// Artifacts are outputs to store on the blackboard.
	Artifacts []models.Artifact `json:"artifacts,omitempty"`
	// Notes are messages for other agents.
	Notes []models.Note `json:"notes,omitempty"`
	// Summary is the one-line completion summary.
	Summary string `json:"summary,omitempty"`
}

// parseResponse extracts the structured payload from raw model output.
// Agents emit a JSON object, optionally inside a code fence or surrounded
// by prose. Output with no recognizable payload yields an empty result and
// the caller stores the raw text instead.
func parseResponse(raw string) parsedResponse {
	var out parsedResponse

	text := raw
	if i := strings.Index(text, "```json"); i >= 0 {
		text = text[i+len("```json"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return out
	}

	var candidate parsedResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &candidate); err != nil {
		return out
	}
	if len(candidate.Artifacts) == 0 && len(candidate.Notes) == 0 && candidate.Summary == "" {
		return out
	}
	return candidate
}
