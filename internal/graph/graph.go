// Package graph provides the task dependency DAG used by the planner and scheduler.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrEmpty indicates a DAG was built from an empty task list.
var ErrEmpty = errors.New("empty task list")

// TaskDAG is a directed acyclic graph of tasks. Edges point from a task to
// the tasks it depends on; the dependents map is maintained as the exact
// transpose of the dependencies map.
type TaskDAG struct {
	mu sync.RWMutex
	// tasks maps task ID to the immutable task definition.
	tasks map[string]*models.Task
	// dependencies maps task ID to the IDs it is blocked by.
	dependencies map[string][]string
	// dependents maps task ID to the IDs blocked by it.
	dependents map[string][]string
	// originalQuery is the user request this DAG was planned from.
	originalQuery string
	// strategy is the planning strategy that produced the DAG.
	strategy string
	// completed tracks tasks the scheduler has marked complete.
	completed map[string]bool
}

// Build constructs a TaskDAG from a slice of tasks.
// Returns ErrEmpty for an empty slice, an error for unknown dependency
// references, and ErrCycleDetected when the dependency relation is cyclic.
func Build(tasks []*models.Task, originalQuery, strategy string) (*TaskDAG, error) {
	if len(tasks) == 0 {
		return nil, ErrEmpty
	}

	g := &TaskDAG{
		tasks:         make(map[string]*models.Task, len(tasks)),
		dependencies:  make(map[string][]string, len(tasks)),
		dependents:    make(map[string][]string, len(tasks)),
		originalQuery: originalQuery,
		strategy:      strategy,
		completed:     make(map[string]bool),
	}

	for _, task := range tasks {
		if _, dup := g.tasks[task.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %s", task.ID)
		}
		g.tasks[task.ID] = task
		g.dependencies[task.ID] = nil
		g.dependents[task.ID] = nil
	}

	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			if _, exists := g.tasks[depID]; !exists {
				return nil, fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.dependencies[task.ID] = append(g.dependencies[task.ID], depID)
			g.dependents[depID] = append(g.dependents[depID], task.ID)
		}
	}

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}
	return g, nil
}

// hasCycleLocked detects a cycle with DFS coloring.
// Color states: 0 = unvisited, 1 = in progress, 2 = done.
func (g *TaskDAG) hasCycleLocked() bool {
	colors := make(map[string]int, len(g.tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, depID := range g.dependencies[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for id := range g.tasks {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns task IDs with every dependency before its dependents.
func (g *TaskDAG) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.tasks))
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.dependencies[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	// Deterministic order regardless of map iteration.
	for _, id := range g.sortedIDsLocked() {
		visit(id)
	}
	return result, nil
}

// Ready returns the IDs of tasks whose every dependency has been marked
// complete and which are not themselves complete. Results are sorted by
// descending effort with ties broken by ascending ID, which is the
// scheduler's dispatch order.
func (g *TaskDAG) Ready() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for id := range g.tasks {
		if g.completed[id] {
			continue
		}
		satisfied := true
		for _, depID := range g.dependencies[id] {
			if !g.completed[depID] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, id)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		ei, ej := g.tasks[ready[i]].Effort, g.tasks[ready[j]].Effort
		if ei != ej {
			return ei > ej
		}
		return ready[i] < ready[j]
	})
	return ready
}

// MarkComplete records that a task finished, unblocking its dependents.
func (g *TaskDAG) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[taskID] = true
}

// IsComplete returns true if the task has been marked complete.
func (g *TaskDAG) IsComplete(taskID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.completed[taskID]
}

// Task returns the task for a given ID, or nil if not found.
func (g *TaskDAG) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tasks[taskID]
}

// Tasks returns all tasks in deterministic (sorted ID) order.
func (g *TaskDAG) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*models.Task, 0, len(g.tasks))
	for _, id := range g.sortedIDsLocked() {
		out = append(out, g.tasks[id])
	}
	return out
}

// Size returns the number of tasks in the graph.
func (g *TaskDAG) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// Dependencies returns the IDs the given task is blocked by.
func (g *TaskDAG) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.dependencies[taskID]...)
}

// Dependents returns the IDs blocked by the given task.
func (g *TaskDAG) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.dependents[taskID]...)
}

// TransitiveDependents returns every task downstream of the given task,
// in no particular order. Used to propagate blocked status on failure.
func (g *TaskDAG) TransitiveDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, dep := range g.dependents[id] {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(taskID)

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OriginalQuery returns the user request this DAG was planned from.
func (g *TaskDAG) OriginalQuery() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.originalQuery
}

// Strategy returns the planning strategy name.
func (g *TaskDAG) Strategy() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.strategy
}

// CriticalPath computes the heaviest root-to-leaf chain by effort.
// For each task, effort-to-end is its own effort plus the maximum
// effort-to-end among its dependents; the critical path follows the maxima.
// The second return value is the total effort along the path.
func (g *TaskDAG) CriticalPath() ([]string, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// effort-to-end per task, memoized over the dependents relation.
	memo := make(map[string]int, len(g.tasks))
	next := make(map[string]string, len(g.tasks))

	var toEnd func(id string) int
	toEnd = func(id string) int {
		if v, ok := memo[id]; ok {
			return v
		}
		best := 0
		bestID := ""
		for _, dep := range g.dependents[id] {
			v := toEnd(dep)
			if v > best || (v == best && bestID != "" && dep < bestID) {
				best = v
				bestID = dep
			}
		}
		total := g.tasks[id].Effort + best
		memo[id] = total
		next[id] = bestID
		return total
	}

	start := ""
	startEffort := -1
	for _, id := range g.sortedIDsLocked() {
		// Roots only: tasks with no dependencies.
		if len(g.dependencies[id]) > 0 {
			continue
		}
		if v := toEnd(id); v > startEffort {
			startEffort = v
			start = id
		}
	}
	if start == "" {
		// Every node has dependencies; unreachable in an acyclic graph,
		// but guard against an empty result.
		return nil, 0
	}

	var path []string
	for id := start; id != ""; id = next[id] {
		path = append(path, id)
	}
	return path, startEffort
}

// sortedIDsLocked returns task IDs in ascending order. Caller must hold g.mu.
func (g *TaskDAG) sortedIDsLocked() []string {
	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
