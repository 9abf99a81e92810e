package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{
		TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if TaskStatus("done").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskStatusPending, false},
		{TaskStatusReady, false},
		{TaskStatusRunning, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusBlocked, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestArtifactValid(t *testing.T) {
	tests := []struct {
		name     string
		artifact Artifact
		want     bool
	}{
		{"path only", Artifact{Type: ArtifactFile, Path: "main.go"}, true},
		{"content only", Artifact{Type: ArtifactDocument, Content: "notes"}, true},
		{"both", Artifact{Type: ArtifactReport, Path: "r.md", Content: "x"}, true},
		{"neither", Artifact{Type: ArtifactFile}, false},
		{"bad type", Artifact{Type: "binary", Path: "a.out"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.artifact.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentDescriptorValidate(t *testing.T) {
	base := func() AgentDescriptor {
		return AgentDescriptor{
			Name:        "code-reviewer",
			Description: "Reviews code changes.",
			Keywords:    []string{"review"},
			Tools:       []string{"read", "search"},
			Temperature: 0.3,
			MaxTokens:   4000,
		}
	}

	if err := (&AgentDescriptor{}).Validate(); err == nil {
		t.Error("expected error for empty descriptor")
	}

	tests := []struct {
		name    string
		mutate  func(*AgentDescriptor)
		wantErr bool
	}{
		{"valid", func(a *AgentDescriptor) {}, false},
		{"uppercase name", func(a *AgentDescriptor) { a.Name = "Code-Reviewer" }, true},
		{"underscore name", func(a *AgentDescriptor) { a.Name = "code_reviewer" }, true},
		{"missing description", func(a *AgentDescriptor) { a.Description = "" }, true},
		{"temperature too high", func(a *AgentDescriptor) { a.Temperature = 1.5 }, true},
		{"temperature negative", func(a *AgentDescriptor) { a.Temperature = -0.1 }, true},
		{"maxTokens too low", func(a *AgentDescriptor) { a.MaxTokens = 50 }, true},
		{"maxTokens too high", func(a *AgentDescriptor) { a.MaxTokens = 20000 }, true},
		{"unknown tool", func(a *AgentDescriptor) { a.Tools = []string{"teleport"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(&a)
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNoteTargeting(t *testing.T) {
	broadcast := Note{ID: "n1", Author: "backend-builder"}
	if !broadcast.IsTargeted("anyone") {
		t.Error("broadcast note should target every agent")
	}

	targeted := Note{ID: "n2", TargetAgents: []string{"tester"}}
	if targeted.IsTargeted("backend-builder") {
		t.Error("targeted note should not match other agents")
	}
	if !targeted.IsTargeted("tester") {
		t.Error("targeted note should match its target")
	}

	read := Note{ID: "n3", ReadBy: []string{"tester"}}
	if !read.IsReadBy("tester") || read.IsReadBy("planner") {
		t.Error("IsReadBy should reflect the ReadBy set exactly")
	}
}

func TestTaskStateClone(t *testing.T) {
	ts := &TaskState{
		Task:      Task{ID: "a", Dependencies: []string{"b"}},
		Status:    TaskStatusRunning,
		Artifacts: []string{"art-1"},
	}
	clone := ts.Clone()
	clone.Artifacts[0] = "mutated"
	clone.Task.Dependencies[0] = "mutated"
	if ts.Artifacts[0] != "art-1" || ts.Task.Dependencies[0] != "b" {
		t.Error("Clone should not share slices with the original")
	}
}
