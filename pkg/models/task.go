// Package models defines the shared data types used across the runtime.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting on dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates all dependencies are completed and the task can run.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates the task has been dispatched to an agent.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusBlocked indicates an upstream dependency failed.
	TaskStatusBlocked TaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is one from which a task never leaves.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Task is an immutable unit of work produced by the planner.
type Task struct {
	// ID is the unique identifier for this task within its DAG.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// Effort is the relative weight of the task, in the range 1-10.
	Effort int `json:"effort"`
	// Category groups related tasks (e.g. "backend", "testing").
	Category string `json:"category,omitempty"`
	// ExpectedOutputs names the artifacts this task is expected to produce.
	ExpectedOutputs []string `json:"expected_outputs,omitempty"`
}

// StatusChange records a single task status transition.
type StatusChange struct {
	// From is the status before the transition.
	From TaskStatus `json:"from"`
	// To is the status after the transition.
	To TaskStatus `json:"to"`
	// Agent is the agent that caused the transition, if any.
	Agent string `json:"agent,omitempty"`
	// Note carries optional free-form context for the transition.
	Note string `json:"note,omitempty"`
	// Timestamp is when the transition occurred.
	Timestamp time.Time `json:"timestamp"`
}

// BlockingIssue describes a problem preventing a task from making progress.
type BlockingIssue struct {
	// Description explains what is blocking the task.
	Description string `json:"description"`
	// RaisedBy is the agent that reported the issue.
	RaisedBy string `json:"raised_by,omitempty"`
	// RaisedAt is when the issue was reported.
	RaisedAt time.Time `json:"raised_at"`
	// Resolved indicates whether the issue has been cleared.
	Resolved bool `json:"resolved"`
	// ResolvedBy is the agent that resolved the issue, if any.
	ResolvedBy string `json:"resolved_by,omitempty"`
	// ResolvedAt is when the issue was resolved, if applicable.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// TaskState is the mutable runtime record accompanying a Task.
// It is owned exclusively by the blackboard.
type TaskState struct {
	// Task is the immutable task definition.
	Task Task `json:"task"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// AssignedAgent is the name of the agent working on the task.
	AssignedAgent string `json:"assigned_agent,omitempty"`
	// StartTime is when the task entered running, if it has.
	StartTime *time.Time `json:"start_time,omitempty"`
	// EndTime is when the task reached a terminal state, if it has.
	EndTime *time.Time `json:"end_time,omitempty"`
	// Error contains the failure reason if the task failed.
	Error string `json:"error,omitempty"`
	// Artifacts lists IDs of artifacts produced by the task.
	Artifacts []string `json:"artifacts,omitempty"`
	// Progress is the completion percentage in [0,100].
	Progress int `json:"progress"`
	// StatusHistory records every transition in order.
	StatusHistory []StatusChange `json:"status_history,omitempty"`
	// BlockingIssues lists reported blocking issues, resolved or not.
	BlockingIssues []BlockingIssue `json:"blocking_issues,omitempty"`
}

// Clone returns a deep copy of the task state.
// The blackboard hands out clones so callers can never mutate owned records.
func (ts *TaskState) Clone() *TaskState {
	if ts == nil {
		return nil
	}
	out := *ts
	out.Task.Dependencies = append([]string(nil), ts.Task.Dependencies...)
	out.Task.ExpectedOutputs = append([]string(nil), ts.Task.ExpectedOutputs...)
	out.Artifacts = append([]string(nil), ts.Artifacts...)
	out.StatusHistory = append([]StatusChange(nil), ts.StatusHistory...)
	out.BlockingIssues = append([]BlockingIssue(nil), ts.BlockingIssues...)
	if ts.StartTime != nil {
		t := *ts.StartTime
		out.StartTime = &t
	}
	if ts.EndTime != nil {
		t := *ts.EndTime
		out.EndTime = &t
	}
	return &out
}
