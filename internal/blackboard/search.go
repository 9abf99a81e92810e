package blackboard

import (
	"regexp"
	"time"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// Query describes a blackboard search. Each populated field narrows the
// result: the outcome per kind is the intersection of all applicable
// filters. Zero-valued fields are ignored.
type Query struct {
	// ArtifactTypes keeps artifacts of any listed type.
	ArtifactTypes []models.ArtifactType
	// Tags keeps artifacts carrying every listed tag.
	Tags []string
	// Author keeps notes written by this agent.
	Author string
	// CreatedAfter keeps records created at or after this time.
	CreatedAfter *time.Time
	// CreatedBefore keeps records created at or before this time.
	CreatedBefore *time.Time
	// NameRegex keeps artifacts whose name or content matches, and tasks
	// whose title matches. Invalid patterns match nothing.
	NameRegex string
	// AssignedAgent keeps tasks assigned to this agent.
	AssignedAgent string
	// MinProgress keeps tasks at or above this percentage.
	MinProgress *int
	// MaxProgress keeps tasks at or below this percentage.
	MaxProgress *int
	// HasBlockingIssues keeps tasks with (true) or without (false)
	// unresolved blocking issues.
	HasBlockingIssues *bool
	// ReadBy keeps notes already read by this agent.
	ReadBy string
}

// Result holds the records matching a Query, one slice per kind.
type Result struct {
	// Tasks are the matching task records.
	Tasks []*models.TaskState
	// Artifacts are the matching artifacts.
	Artifacts []*models.Artifact
	// Notes are the matching notes.
	Notes []*models.Note
}

// Search evaluates a query against the current state and returns copies of
// every matching record.
func (b *Blackboard) Search(q Query) Result {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var nameRe *regexp.Regexp
	if q.NameRegex != "" {
		// An invalid pattern matches nothing rather than failing the search.
		nameRe, _ = regexp.Compile(q.NameRegex)
	}

	var res Result
	for _, ts := range b.tasks {
		if matchTask(ts, q, nameRe) {
			res.Tasks = append(res.Tasks, ts.Clone())
		}
	}
	for _, a := range b.artifacts {
		if matchArtifact(a, q, nameRe) {
			res.Artifacts = append(res.Artifacts, a.Clone())
		}
	}
	for _, n := range b.notes {
		if matchNote(n, q) {
			res.Notes = append(res.Notes, n.Clone())
		}
	}
	return res
}

func matchTask(ts *models.TaskState, q Query, nameRe *regexp.Regexp) bool {
	if q.AssignedAgent != "" && ts.AssignedAgent != q.AssignedAgent {
		return false
	}
	if q.MinProgress != nil && ts.Progress < *q.MinProgress {
		return false
	}
	if q.MaxProgress != nil && ts.Progress > *q.MaxProgress {
		return false
	}
	if q.HasBlockingIssues != nil {
		open := false
		for _, issue := range ts.BlockingIssues {
			if !issue.Resolved {
				open = true
				break
			}
		}
		if open != *q.HasBlockingIssues {
			return false
		}
	}
	if q.NameRegex != "" {
		if nameRe == nil || !nameRe.MatchString(ts.Task.Title) {
			return false
		}
	}
	return true
}

func matchArtifact(a *models.Artifact, q Query, nameRe *regexp.Regexp) bool {
	if len(q.ArtifactTypes) > 0 {
		found := false
		for _, t := range q.ArtifactTypes {
			if a.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, want := range q.Tags {
		found := false
		for _, tag := range a.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.CreatedAfter != nil && a.CreatedAt.Before(*q.CreatedAfter) {
		return false
	}
	if q.CreatedBefore != nil && a.CreatedAt.After(*q.CreatedBefore) {
		return false
	}
	if q.NameRegex != "" {
		if nameRe == nil {
			return false
		}
		if !nameRe.MatchString(a.Name) && !nameRe.MatchString(a.Content) {
			return false
		}
	}
	return true
}

func matchNote(n *models.Note, q Query) bool {
	if q.Author != "" && n.Author != q.Author {
		return false
	}
	if q.CreatedAfter != nil && n.CreatedAt.Before(*q.CreatedAfter) {
		return false
	}
	if q.CreatedBefore != nil && n.CreatedAt.After(*q.CreatedBefore) {
		return false
	}
	if q.ReadBy != "" && !n.IsReadBy(q.ReadBy) {
		return false
	}
	return true
}
