package models

import (
	"fmt"
	"regexp"
)

// AgentScope identifies which descriptor root an agent was loaded from.
type AgentScope string

const (
	// ScopeProject marks agents loaded from the project-local directory.
	ScopeProject AgentScope = "project"
	// ScopeUser marks agents loaded from the user-global directory.
	ScopeUser AgentScope = "user"
	// ScopeBuiltin marks agents compiled into the runtime.
	ScopeBuiltin AgentScope = "builtin"
)

// ToolCatalogue is the fixed set of tool identifiers an agent may request.
var ToolCatalogue = map[string]bool{
	"read":               true,
	"write":              true,
	"edit":               true,
	"shell":              true,
	"search":             true,
	"grep":               true,
	"glob":               true,
	"debugger":           true,
	"test":               true,
	"web_fetch":          true,
	"screenshot":         true,
	"snapshot":           true,
	"capture":            true,
	"browser_screenshot": true,
}

// nameRe matches lowercase-hyphenated agent names like "code-reviewer".
var nameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// AgentExample is a usage example embedded in a descriptor.
type AgentExample struct {
	// Input is the example user request.
	Input string `json:"input" yaml:"input"`
	// Output sketches the expected agent response.
	Output string `json:"output" yaml:"output"`
	// Description explains when the example applies.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// AgentDescriptor is an immutable agent definition parsed from a descriptor file.
// Descriptors are created by the registry and replaced atomically on reload,
// never mutated in place.
type AgentDescriptor struct {
	// Name is the unique lowercase-hyphenated agent identifier.
	Name string `json:"name" yaml:"name"`
	// Description explains what the agent does, with usage examples.
	Description string `json:"description" yaml:"description"`
	// Keywords are routing hints matched against task text.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	// Tools is the ordered tool whitelist, drawn from ToolCatalogue.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	// Model optionally overrides the configured model for this agent.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Provider optionally overrides the configured provider.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	// Temperature is the sampling temperature in [0,1].
	Temperature float64 `json:"temperature" yaml:"temperature"`
	// MaxTokens is the response token cap in [100,10000].
	MaxTokens int `json:"maxTokens" yaml:"maxTokens"`
	// Color is an optional display tag for the host UI.
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	// Examples are optional usage examples from the descriptor header.
	Examples []AgentExample `json:"examples,omitempty" yaml:"examples,omitempty"`
	// SystemPrompt is the free-form body following the descriptor header.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"-"`
	// Scope records which root the descriptor was loaded from.
	Scope AgentScope `json:"scope,omitempty" yaml:"-"`
	// Category is an optional grouping label used by lookup and routing.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Validate checks the descriptor against the schema.
// It returns the first violation found.
func (a *AgentDescriptor) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("agent name is required")
	}
	if !nameRe.MatchString(a.Name) {
		return fmt.Errorf("agent name %q must be lowercase-hyphenated", a.Name)
	}
	if a.Description == "" {
		return fmt.Errorf("agent %s: description is required", a.Name)
	}
	if a.Temperature < 0 || a.Temperature > 1 {
		return fmt.Errorf("agent %s: temperature %.2f outside [0,1]", a.Name, a.Temperature)
	}
	if a.MaxTokens < 100 || a.MaxTokens > 10000 {
		return fmt.Errorf("agent %s: maxTokens %d outside [100,10000]", a.Name, a.MaxTokens)
	}
	for _, tool := range a.Tools {
		if !ToolCatalogue[tool] {
			return fmt.Errorf("agent %s: unknown tool %q", a.Name, tool)
		}
	}
	return nil
}

// HasKeyword returns true if the descriptor lists the given keyword.
func (a *AgentDescriptor) HasKeyword(keyword string) bool {
	for _, k := range a.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the descriptor.
func (a *AgentDescriptor) Clone() *AgentDescriptor {
	if a == nil {
		return nil
	}
	out := *a
	out.Keywords = append([]string(nil), a.Keywords...)
	out.Tools = append([]string(nil), a.Tools...)
	out.Examples = append([]AgentExample(nil), a.Examples...)
	return &out
}
