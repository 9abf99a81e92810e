package planner

import (
	"github.com/tessellate-ai/maestro/pkg/models"
)

// consolidate merges adjacent same-category tasks until the count fits
// maxTasks or no adjacent pair shares a category. A merged task keeps the
// first member's ID, takes ⌊0.8·sum(original member efforts)⌋ effort
// (minimum 1), the union of external dependencies, and the union of
// expected outputs. Task order is preserved.
func consolidate(tasks []*models.Task, maxTasks int) []*models.Task {
	if maxTasks <= 0 || len(tasks) <= maxTasks {
		return tasks
	}

	// Original-effort totals per surviving ID. A group absorbed over
	// several iterations is discounted once, over the whole group, not
	// once per pairwise merge.
	sums := make(map[string]int, len(tasks))
	for _, t := range tasks {
		sums[t.ID] = t.Effort
	}

	for len(tasks) > maxTasks {
		idx := -1
		for i := 0; i < len(tasks)-1; i++ {
			if tasks[i].Category != "" && tasks[i].Category == tasks[i+1].Category {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		sum := sums[tasks[idx].ID] + sums[tasks[idx+1].ID]
		merged := mergeTasks(tasks[idx], tasks[idx+1], sum)
		sums[merged.ID] = sum
		replaced := tasks[idx+1].ID
		tasks = append(tasks[:idx], append([]*models.Task{merged}, tasks[idx+2:]...)...)

		// Rewrite references to the absorbed task.
		for _, t := range tasks {
			for i, dep := range t.Dependencies {
				if dep == replaced {
					t.Dependencies[i] = merged.ID
				}
			}
			t.Dependencies = dedupe(t.Dependencies, t.ID)
		}
	}
	return tasks
}

// mergeTasks combines two tasks into one record under the first one's ID.
// originalSum is the total original effort of every member absorbed so far.
func mergeTasks(a, b *models.Task, originalSum int) *models.Task {
	effort := originalSum * 8 / 10
	if effort < 1 {
		effort = 1
	}
	merged := &models.Task{
		ID:          a.ID,
		Title:       a.Title + " and " + lowerFirst(b.Title),
		Description: joinNonEmpty(a.Description, b.Description),
		Category:    a.Category,
		Effort:      effort,
	}

	internal := map[string]bool{a.ID: true, b.ID: true}
	for _, dep := range append(append([]string(nil), a.Dependencies...), b.Dependencies...) {
		if !internal[dep] {
			merged.Dependencies = append(merged.Dependencies, dep)
		}
	}
	merged.Dependencies = dedupe(merged.Dependencies, merged.ID)

	seen := make(map[string]bool)
	for _, out := range append(append([]string(nil), a.ExpectedOutputs...), b.ExpectedOutputs...) {
		if !seen[out] {
			seen[out] = true
			merged.ExpectedOutputs = append(merged.ExpectedOutputs, out)
		}
	}
	return merged
}

// dedupe removes duplicates and self-references from a dependency list.
func dedupe(deps []string, self string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range deps {
		if d == self || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'A' && s[0] <= 'Z' {
		return string(s[0]+'a'-'A') + s[1:]
	}
	return s
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
