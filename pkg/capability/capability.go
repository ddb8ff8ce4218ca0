// Package capability implements the sub-agent capability registry: each
// of the engine's sub-agents (error resolver, code-intel lookup,
// self-improver, spec executor, crawler) is a named Capability registered
// into a map at process start, replacing a dispatch-by-string-switch.
package capability

import (
	"context"
	"fmt"
	"sync"
)

// Task is the unit of work handed to a Capability.
type Task struct {
	Name    string
	Payload map[string]any
}

// Result is what a Capability returns for one Task.
type Result struct {
	Output map[string]any
	Err    error
}

// Capability is a named, pluggable sub-agent.
type Capability interface {
	Name() string
	Run(ctx context.Context, task Task) Result
}

// Registry holds every Capability known to the process, keyed by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Capability
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Capability)}
}

// Register adds c to the registry under its own Name(). It returns an
// error if a capability with that name is already registered, rather than
// silently shadowing it.
func (r *Registry) Register(c Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("capability: %q is already registered", c.Name())
	}
	r.byName[c.Name()] = c
	return nil
}

// Get looks up a Capability by name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Dispatch runs task against the capability named task.Name, returning an
// error Result if no such capability is registered.
func (r *Registry) Dispatch(ctx context.Context, task Task) Result {
	c, ok := r.Get(task.Name)
	if !ok {
		return Result{Err: fmt.Errorf("capability: no capability registered for %q", task.Name)}
	}
	return c.Run(ctx, task)
}

// Names returns every registered capability name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
