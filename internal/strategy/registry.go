package strategy

import (
	"context"
	"fmt"
	"sync"
)

// serialAdapter wraps an Adapter so that no two calls on it ever overlap.
// Capital movements and yield reads mutate or observe external position
// state; interleaving them on one strategy risks conflicting writes.
type serialAdapter struct {
	mu    sync.Mutex
	inner Adapter
}

func (s *serialAdapter) Name() string         { return s.inner.Name() }
func (s *serialAdapter) RiskScore() float64   { return s.inner.RiskScore() }
func (s *serialAdapter) FallbackAPY() float64 { return s.inner.FallbackAPY() }

func (s *serialAdapter) CurrentAPY(ctx context.Context) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.CurrentAPY(ctx)
}

func (s *serialAdapter) Deposit(ctx context.Context, amount float64) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Deposit(ctx, amount)
}

func (s *serialAdapter) Withdraw(ctx context.Context, amount float64) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Withdraw(ctx, amount)
}

// Registry is the fixed lookup table of registered strategies. Registration
// order is preserved; it drives planner output and report ordering.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter, wrapped for single-flight call serialization.
// Registering a duplicate name is a programming error.
func (r *Registry) Register(a Adapter) error {
	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("strategy %s already registered", name)
	}
	r.adapters[name] = &serialAdapter{inner: a}
	r.order = append(r.order, name)
	return nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// All returns the adapters in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Names returns the registered strategy names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
