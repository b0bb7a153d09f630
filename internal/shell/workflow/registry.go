package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// =============================================================================
// Workflow Registry
// =============================================================================

// Registry tracks live workflows. Snapshots are deep copies: callers never
// see a workflow that is concurrently mutated by the engine.
type Registry interface {
	// Put registers a new workflow. Fails if the ID is already present.
	Put(wf *domain.DeploymentWorkflow) error
	// Update applies fn to the workflow under its entry lock.
	Update(id string, fn func(wf *domain.DeploymentWorkflow) error) error
	// Snapshot returns a deep copy of the workflow.
	Snapshot(id string) (*domain.DeploymentWorkflow, error)
	// List returns deep copies of all workflows, newest first.
	List() []*domain.DeploymentWorkflow
	// Delete removes a workflow from the registry.
	Delete(id string) error
}

type registryEntry struct {
	mu sync.Mutex
	wf *domain.DeploymentWorkflow
}

// MemoryRegistry is an in-process Registry with a lock per entry, so a
// long-running update of one workflow never blocks reads of another.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]*registryEntry)}
}

func (r *MemoryRegistry) Put(wf *domain.DeploymentWorkflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[wf.ID]; exists {
		return fmt.Errorf("workflow %s already registered", wf.ID)
	}
	r.entries[wf.ID] = &registryEntry{wf: wf}
	return nil
}

func (r *MemoryRegistry) entry(id string) (*registryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
	}
	return e, nil
}

func (r *MemoryRegistry) Update(id string, fn func(wf *domain.DeploymentWorkflow) error) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.wf)
}

func (r *MemoryRegistry) Snapshot(id string) (*domain.DeploymentWorkflow, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wf.Clone(), nil
}

func (r *MemoryRegistry) List() []*domain.DeploymentWorkflow {
	r.mu.RLock()
	entries := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]*domain.DeploymentWorkflow, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.wf.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
	}
	delete(r.entries, id)
	return nil
}
