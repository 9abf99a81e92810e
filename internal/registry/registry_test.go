package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tessellate-ai/maestro/pkg/models"
)

const reviewerDescriptor = `---
name: code-reviewer
description: 'Reviews diffs for correctness and style. Example: "review my PR".'
category: quality
keywords: [review, quality, lint]
tools: [read, search, grep]
temperature: 0.2
maxTokens: 3000
---
You are a meticulous code reviewer. Focus on correctness first.
`

func writeDescriptor(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
}

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor([]byte(reviewerDescriptor), models.ScopeProject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Name != "code-reviewer" {
		t.Errorf("name = %q", desc.Name)
	}
	if desc.Temperature != 0.2 || desc.MaxTokens != 3000 {
		t.Errorf("tuning fields not parsed: temp=%v max=%v", desc.Temperature, desc.MaxTokens)
	}
	if !reflect.DeepEqual(desc.Keywords, []string{"review", "quality", "lint"}) {
		t.Errorf("keywords = %v", desc.Keywords)
	}
	if desc.SystemPrompt == "" || desc.SystemPrompt[0] != 'Y' {
		t.Errorf("body not captured: %q", desc.SystemPrompt)
	}
}

func TestParseDescriptorDefaults(t *testing.T) {
	content := "---\nname: helper\ndescription: Helps.\n---\nBe helpful.\n"
	desc, err := ParseDescriptor([]byte(content), models.ScopeUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Temperature != defaultTemperature || desc.MaxTokens != defaultMaxTokens {
		t.Errorf("defaults not applied: temp=%v max=%v", desc.Temperature, desc.MaxTokens)
	}
}

func TestParseDescriptorErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no header", "just a prompt body\n"},
		{"unterminated", "---\nname: x\ndescription: y\n"},
		{"bad yaml", "---\nname: [\n---\nbody\n"},
		{"schema violation", "---\nname: Bad_Name\ndescription: d\n---\nbody\n"},
		{"unknown tool", "---\nname: a-b\ndescription: d\ntools: [rocket]\n---\nbody\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDescriptor([]byte(tt.content), models.ScopeUser); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	orig, err := ParseDescriptor([]byte(reviewerDescriptor), models.ScopeProject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	canonical, err := CanonicalDescriptor(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reparsed, err := ParseDescriptor(canonical, models.ScopeProject)
	if err != nil {
		t.Fatalf("canonical form failed to parse: %v", err)
	}
	if !reflect.DeepEqual(orig, reparsed) {
		t.Errorf("round trip mismatch:\n  orig: %+v\n  back: %+v", orig, reparsed)
	}
}

func TestRegistryLoadAndShadowing(t *testing.T) {
	project := t.TempDir()
	user := t.TempDir()

	writeDescriptor(t, user, "code-reviewer.md", reviewerDescriptor)
	writeDescriptor(t, user, "tester.md",
		"---\nname: tester\ndescription: Runs tests.\nkeywords: [test]\ntools: [shell, test]\n---\nRun the tests.\n")
	// Project-scope reviewer with different tuning shadows the user one.
	writeDescriptor(t, project, "code-reviewer.md",
		"---\nname: code-reviewer\ndescription: Project reviewer.\ntemperature: 0.5\nmaxTokens: 2000\n---\nProject rules apply.\n")

	r := New(project, user)
	defer r.Close()

	if r.Count() != 2 {
		t.Fatalf("expected 2 agents, got %d", r.Count())
	}

	desc, err := r.Get("code-reviewer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Scope != models.ScopeProject || desc.Description != "Project reviewer." {
		t.Errorf("project descriptor should shadow user descriptor, got %+v", desc)
	}

	found := false
	for _, w := range r.Warnings() {
		if w == "agent code-reviewer: project descriptor shadows user descriptor" {
			found = true
		}
	}
	if !found {
		t.Errorf("shadowing should record a warning, got %v", r.Warnings())
	}
}

func TestRegistryInvalidFileIsWarningNotFatal(t *testing.T) {
	project := t.TempDir()
	writeDescriptor(t, project, "good.md",
		"---\nname: good-agent\ndescription: Works.\n---\nbody\n")
	writeDescriptor(t, project, "broken.md", "no frontmatter here")

	r := New(project, "")
	defer r.Close()

	if r.Count() != 1 {
		t.Errorf("valid agents should survive an invalid sibling, count=%d", r.Count())
	}
	if len(r.Warnings()) == 0 {
		t.Error("invalid file should record a warning")
	}
}

func TestRegistryMissingRoots(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "nope"), "")
	defer r.Close()

	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
	// The built-in default is still resolvable.
	desc, err := r.Get("general-purpose")
	if err != nil || desc.Scope != models.ScopeBuiltin {
		t.Errorf("default agent should always resolve, got %v, err %v", desc, err)
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := New(t.TempDir(), "")
	defer r.Close()
	if _, err := r.Get("ghost"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestLookups(t *testing.T) {
	project := t.TempDir()
	writeDescriptor(t, project, "reviewer.md", reviewerDescriptor)
	writeDescriptor(t, project, "auditor.md",
		"---\nname: auditor\ndescription: Audits.\ncategory: quality\nkeywords: [audit]\n---\nbody\n")

	r := New(project, "")
	defer r.Close()

	byKeyword := r.LookupByKeyword("review")
	if len(byKeyword) != 1 || byKeyword[0].Name != "code-reviewer" {
		t.Errorf("keyword lookup mismatch: %v", byKeyword)
	}

	byCategory := r.LookupByCategory("quality")
	if len(byCategory) != 2 {
		t.Fatalf("expected 2 quality agents, got %d", len(byCategory))
	}
	// Ordered by name.
	if byCategory[0].Name != "auditor" || byCategory[1].Name != "code-reviewer" {
		t.Errorf("category lookup order mismatch: %s, %s", byCategory[0].Name, byCategory[1].Name)
	}
}

func TestReloadReplacesSnapshot(t *testing.T) {
	project := t.TempDir()
	writeDescriptor(t, project, "a.md", "---\nname: agent-a\ndescription: A.\n---\nbody\n")

	r := New(project, "")
	defer r.Close()
	if r.Count() != 1 {
		t.Fatalf("expected 1 agent, got %d", r.Count())
	}

	writeDescriptor(t, project, "b.md", "---\nname: agent-b\ndescription: B.\n---\nbody\n")
	if err := os.Remove(filepath.Join(project, "a.md")); err != nil {
		t.Fatal(err)
	}
	r.Reload()

	if r.Count() != 1 {
		t.Fatalf("expected 1 agent after reload, got %d", r.Count())
	}
	if _, err := r.Get("agent-a"); err == nil {
		t.Error("removed agent should be gone after reload")
	}
	if _, err := r.Get("agent-b"); err != nil {
		t.Errorf("new agent should be present after reload: %v", err)
	}
}
