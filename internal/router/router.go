// Package router resolves tasks to agent descriptors.
// The router never executes anything; it only picks the agent whose
// descriptor best matches the task text.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tessellate-ai/maestro/internal/registry"
	"github.com/tessellate-ai/maestro/pkg/models"
)

// ErrNoAgent indicates an explicitly requested agent does not exist.
var ErrNoAgent = fmt.Errorf("no-agent")

// Scoring weights. Keywords are the strongest signal because descriptor
// authors curate them; description text is the weakest.
const (
	keywordWeight     = 3
	categoryWeight    = 2
	descriptionWeight = 1
)

// explicitRe matches the explicit-invocation form: use <agent>: "<query>".
var explicitRe = regexp.MustCompile(`^use\s+([a-z][a-z0-9-]*)\s*:\s*"?(.*?)"?\s*$`)

// Router maps a (task, query) pair to an agent descriptor.
type Router struct {
	registry *registry.Registry
}

// New creates a Router over the given registry.
func New(reg *registry.Registry) *Router {
	return &Router{registry: reg}
}

// Resolution is the outcome of routing a task.
type Resolution struct {
	// Agent is the selected descriptor.
	Agent *models.AgentDescriptor
	// Score is the winning match score; 0 for explicit or fallback picks.
	Score int
	// Explicit is true when the query used the `use <agent>:` override.
	Explicit bool
}

// Resolve picks an agent for the given task and query.
//
// An explicit `use <agent>: "<query>"` form bypasses scoring and fails with
// ErrNoAgent if the named agent does not exist. Otherwise descriptors are
// scored over keywords, category, and description; ties prefer agents with
// narrower tool sets, then lexicographically smaller names. When nothing
// scores above zero the built-in general-purpose agent is returned.
func (r *Router) Resolve(task *models.Task, query string) (*Resolution, error) {
	if m := explicitRe.FindStringSubmatch(strings.TrimSpace(query)); m != nil {
		desc, err := r.registry.Get(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoAgent, m[1])
		}
		return &Resolution{Agent: desc, Explicit: true}, nil
	}

	text := strings.ToLower(query)
	if task != nil {
		text += " " + strings.ToLower(task.Title+" "+task.Description+" "+task.Category)
	}
	words := tokenize(text)

	var best *models.AgentDescriptor
	bestScore := 0
	for _, desc := range r.registry.List() {
		score := scoreAgent(desc, words)
		if score == 0 {
			continue
		}
		switch {
		case best == nil || score > bestScore:
			best, bestScore = desc, score
		case score == bestScore && narrower(desc, best):
			best = desc
		}
	}

	if best == nil {
		return &Resolution{Agent: registry.DefaultAgent}, nil
	}
	return &Resolution{Agent: best, Score: bestScore}, nil
}

// scoreAgent computes the match score for one descriptor over the tokenized
// request text.
func scoreAgent(desc *models.AgentDescriptor, words map[string]bool) int {
	score := 0
	for _, kw := range desc.Keywords {
		if words[strings.ToLower(kw)] {
			score += keywordWeight
		}
	}
	if desc.Category != "" && words[strings.ToLower(desc.Category)] {
		score += categoryWeight
	}
	for _, w := range tokenizeList(desc.Description) {
		if words[w] {
			score += descriptionWeight
		}
	}
	return score
}

// narrower reports whether a beats b on the tie-break: a smaller tool set
// means a more specialized agent; equal sets fall back to name order.
func narrower(a, b *models.AgentDescriptor) bool {
	if len(a.Tools) != len(b.Tools) {
		return len(a.Tools) < len(b.Tools)
	}
	return a.Name < b.Name
}

var wordRe = regexp.MustCompile(`[a-z0-9][a-z0-9-]*`)

// tokenize splits lowercase text into a word set.
func tokenize(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordRe.FindAllString(text, -1) {
		out[w] = true
	}
	return out
}

// tokenizeList returns deduplicated lowercase words of a descriptor field.
func tokenizeList(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
