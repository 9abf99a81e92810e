package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/tessellate-ai/maestro/internal/llm"
	"github.com/tessellate-ai/maestro/pkg/models"
)

// unitOutcome is what an execution unit reports back to the dispatch loop.
type unitOutcome struct {
	taskID    string
	agent     string
	summary   string
	err       error
	timedOut  bool
	cancelled bool
}

// runUnit executes one task end to end: compose the request, call the
// model with retries, parse the response into blackboard writes.
func (s *Scheduler) runUnit(ctx context.Context, task *models.Task, agent *models.AgentDescriptor, results chan<- unitOutcome) {
	out := unitOutcome{taskID: task.ID, agent: agent.Name}

	if s.cfg.PerTaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PerTaskTimeout)
		defer cancel()
	}

	req := s.buildRequest(task, agent)
	resp, err := s.generateWithRetry(ctx, req)
	if err != nil {
		out.err = err
		out.timedOut = errors.Is(err, context.DeadlineExceeded)
		out.cancelled = errors.Is(err, context.Canceled)
		results <- out
		return
	}
	if len(resp.Text) > s.cfg.MaxResponseBytes {
		out.err = fmt.Errorf("response of %d bytes exceeds the %d byte buffer cap",
			len(resp.Text), s.cfg.MaxResponseBytes)
		results <- out
		return
	}

	out.summary = s.commitResponse(task, agent, resp)
	results <- out
}

// generateWithRetry calls the model, retrying transient failures with
// exponential backoff and falling back to the secondary chain once the
// retry budget is spent.
func (s *Scheduler) generateWithRetry(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	resp, err := s.model.Generate(ctx, req)
	attempt := 0
	for err != nil && llm.IsRetryable(err) && attempt < s.cfg.MaxRetries && ctx.Err() == nil {
		attempt++
		s.guards.Retry(attempt, s.cfg.MaxRetries)
		select {
		case <-time.After(s.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		resp, err = s.model.Generate(ctx, req)
	}
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !llm.IsRetryable(err) {
		return nil, err
	}

	s.guards.Retry(s.cfg.MaxRetries+1, s.cfg.MaxRetries)
	resp, ferr := s.model.Fallback(ctx, req)
	if ferr != nil {
		return nil, fmt.Errorf("primary exhausted (%v), fallback failed: %w", err, ferr)
	}
	return resp, nil
}

// backoff returns the delay before retry n, exponential with jitter.
func (s *Scheduler) backoff(attempt int) time.Duration {
	d := float64(s.cfg.BackoffBase) * math.Pow(s.cfg.BackoffFactor, float64(attempt-1))
	if d > float64(s.cfg.BackoffCap) {
		d = float64(s.cfg.BackoffCap)
	}
	if s.cfg.BackoffJitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*s.cfg.BackoffJitter
	}
	if d > float64(s.cfg.BackoffCap) {
		d = float64(s.cfg.BackoffCap)
	}
	return time.Duration(d)
}

// buildRequest composes the model request from the agent's system prompt,
// the task, upstream artifacts, unread notes, and pending guardrails.
func (s *Scheduler) buildRequest(task *models.Task, agent *models.AgentDescriptor) *llm.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Task %s: %s\n", task.ID, task.Title)
	if task.Description != "" {
		sb.WriteString(task.Description)
		sb.WriteString("\n")
	}
	if len(task.ExpectedOutputs) > 0 {
		fmt.Fprintf(&sb, "\nExpected outputs: %s\n", strings.Join(task.ExpectedOutputs, ", "))
	}

	// Context from completed dependencies.
	for _, dep := range task.Dependencies {
		for _, a := range s.board.ListArtifactsByTask(dep) {
			fmt.Fprintf(&sb, "\n### Artifact %s (%s, from %s)\n", a.Name, a.Type, dep)
			if a.Summary != "" {
				sb.WriteString(a.Summary)
				sb.WriteString("\n")
			} else if a.Content != "" {
				sb.WriteString(a.Content)
				sb.WriteString("\n")
			} else if a.Path != "" {
				fmt.Fprintf(&sb, "stored at %s\n", a.Path)
			}
		}
	}

	// Unread notes addressed to this agent. Reading is recorded so the
	// same note is not replayed on the next task.
	for _, n := range s.board.NotesForAgent(agent.Name, true) {
		fmt.Fprintf(&sb, "\n### Note from %s [%s/%s]: %s\n%s\n",
			n.Author, n.Category, n.Priority, n.Title, n.Body)
		if err := s.board.MarkNoteRead(n.ID, agent.Name); err != nil {
			log.Printf("[scheduler] mark note read: %v", err)
		}
	}

	// Pending guardrail directives from the previous step.
	for _, g := range s.guards.Pending() {
		fmt.Fprintf(&sb, "\n[guardrail] %s\n", g.Body)
	}

	return &llm.Request{
		System: agent.SystemPrompt,
		Messages: []llm.Message{{
			Role:  llm.RoleUser,
			Parts: []llm.Part{{Text: sb.String()}},
		}},
		Model:       agent.Model,
		Temperature: agent.Temperature,
		MaxTokens:   agent.MaxTokens,
		ActiveTools: agent.Tools,
	}
}

// commitResponse parses a model response and writes its artifacts and
// notes to the blackboard. Returns a short completion summary.
func (s *Scheduler) commitResponse(task *models.Task, agent *models.AgentDescriptor, resp *llm.Response) string {
	parsed := parseResponse(resp.Text)

	if len(parsed.Artifacts) == 0 {
		// Responses without structured output still leave a record.
		parsed.Artifacts = append(parsed.Artifacts, models.Artifact{
			Name:    task.ID + "-result",
			Type:    models.ArtifactReport,
			Content: resp.Text,
		})
	}

	count := 0
	for i := range parsed.Artifacts {
		a := parsed.Artifacts[i]
		a.CreatedBy = task.ID
		if a.Type == "" {
			a.Type = models.ArtifactReport
		}
		if _, err := s.board.CreateArtifact(&a); err != nil {
			log.Printf("[scheduler] artifact from %s: %v", task.ID, err)
			continue
		}
		count++
	}

	for i := range parsed.Notes {
		n := parsed.Notes[i]
		n.Author = agent.Name
		if _, err := s.board.CreateNote(&n); err != nil {
			log.Printf("[scheduler] note from %s: %v", task.ID, err)
		}
	}

	if parsed.Summary != "" {
		return parsed.Summary
	}
	return fmt.Sprintf("%d artifact(s) produced", count)
}
