package registry

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// ErrAgentNotFound indicates a lookup against an unknown agent name.
var ErrAgentNotFound = errors.New("agent not found")

// DescriptorExt is the file extension for agent descriptor files.
const DescriptorExt = ".md"

// DefaultAgent is the built-in fallback agent used when no descriptor
// matches a request. It is always present, even with empty roots.
var DefaultAgent = &models.AgentDescriptor{
	Name:        "general-purpose",
	Description: "Handles any task when no specialized agent matches.",
	Keywords:    []string{"general"},
	Tools:       []string{"read", "write", "edit", "shell", "search"},
	Temperature: 0.7,
	MaxTokens:   4000,
	SystemPrompt: "You are a capable software engineering agent. " +
		"Complete the assigned task and report produced artifacts.",
	Scope: models.ScopeBuiltin,
}

// snapshot is an immutable view of the loaded agents. Reload builds a new
// snapshot off-line and swaps the reference atomically under the lock.
type snapshot struct {
	// byName maps agent name to its descriptor.
	byName map[string]*models.AgentDescriptor
	// ordered lists names sorted for deterministic listing.
	ordered []string
}

// Registry maintains the current set of valid agent descriptors loaded from
// the project-local and user-global roots. Project-scope descriptors shadow
// user-scope descriptors with the same name.
type Registry struct {
	// projectRoot is the project-local descriptor directory.
	projectRoot string
	// userRoot is the user-global descriptor directory.
	userRoot string
	// mu guards snap and warnings.
	mu sync.RWMutex
	// snap is the current immutable descriptor set.
	snap *snapshot
	// warnings holds per-file problems from the last load.
	warnings []string
	// watcher reloads on file changes, when started.
	watcher *watcher
}

// New creates a Registry over the two descriptor roots and performs the
// initial load. An unreadable root is a warning, not a failure: the registry
// starts with whatever loads, and always includes the built-in default agent.
func New(projectRoot, userRoot string) *Registry {
	r := &Registry{
		projectRoot: projectRoot,
		userRoot:    userRoot,
		snap:        &snapshot{byName: map[string]*models.AgentDescriptor{}},
	}
	r.Reload()
	return r
}

// Reload rescans both roots, validates every descriptor, and atomically
// replaces the in-memory set. Per-file parse errors are recorded as
// warnings; valid descriptors from other files remain available.
func (r *Registry) Reload() {
	byName := make(map[string]*models.AgentDescriptor)
	var warnings []string

	// User scope first so project scope shadows it.
	for _, root := range []struct {
		dir   string
		scope models.AgentScope
	}{
		{r.userRoot, models.ScopeUser},
		{r.projectRoot, models.ScopeProject},
	} {
		if root.dir == "" {
			continue
		}
		descs, warns := loadRoot(root.dir, root.scope)
		warnings = append(warnings, warns...)
		for _, desc := range descs {
			if prev, ok := byName[desc.Name]; ok && prev.Scope != desc.Scope {
				warnings = append(warnings, fmt.Sprintf(
					"agent %s: project descriptor shadows user descriptor", desc.Name))
			}
			byName[desc.Name] = desc
		}
	}

	ordered := make([]string, 0, len(byName))
	for name := range byName {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	r.mu.Lock()
	r.snap = &snapshot{byName: byName, ordered: ordered}
	r.warnings = warnings
	r.mu.Unlock()

	for _, w := range warnings {
		log.Printf("[registry] %s", w)
	}
}

// loadRoot parses every descriptor file directly under dir.
func loadRoot(dir string, scope models.AgentScope) ([]*models.AgentDescriptor, []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []string{fmt.Sprintf("read agents dir %s: %v", dir, err)}
	}

	var descs []*models.AgentDescriptor
	var warnings []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), DescriptorExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		desc, err := ParseDescriptorFile(path, scope)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		descs = append(descs, desc)
	}
	return descs, warnings
}

// List returns a snapshot of the currently valid agents, sorted by name.
// The built-in default agent is not included; use Get to resolve it.
func (r *Registry) List() []*models.AgentDescriptor {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	out := make([]*models.AgentDescriptor, 0, len(snap.ordered))
	for _, name := range snap.ordered {
		out = append(out, snap.byName[name])
	}
	return out
}

// Get returns the descriptor with the given name. The built-in default
// agent resolves by its own name; unknown names return ErrAgentNotFound.
func (r *Registry) Get(name string) (*models.AgentDescriptor, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	if desc, ok := snap.byName[name]; ok {
		return desc, nil
	}
	if name == DefaultAgent.Name {
		return DefaultAgent, nil
	}
	return nil, fmt.Errorf("agent %q: %w", name, ErrAgentNotFound)
}

// LookupByKeyword returns agents listing the given keyword, in name order.
func (r *Registry) LookupByKeyword(keyword string) []*models.AgentDescriptor {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	var out []*models.AgentDescriptor
	for _, name := range snap.ordered {
		if snap.byName[name].HasKeyword(keyword) {
			out = append(out, snap.byName[name])
		}
	}
	return out
}

// LookupByCategory returns agents in the given category, in name order.
func (r *Registry) LookupByCategory(category string) []*models.AgentDescriptor {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	var out []*models.AgentDescriptor
	for _, name := range snap.ordered {
		if snap.byName[name].Category == category {
			out = append(out, snap.byName[name])
		}
	}
	return out
}

// Warnings returns the per-file problems recorded by the last load.
func (r *Registry) Warnings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.warnings...)
}

// Count returns the number of loaded descriptors, excluding the built-in.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snap.byName)
}

// Watch starts observing both roots for changes, reloading after the
// debounce window. It is a no-op if watching is already active.
func (r *Registry) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		return nil
	}
	w, err := newWatcher([]string{r.projectRoot, r.userRoot}, r.Reload)
	if err != nil {
		return err
	}
	r.watcher = w
	return nil
}

// Close stops the file watcher, if one was started.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		r.watcher.stop()
		r.watcher = nil
	}
}
