package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// Registry manages the available strategies.
type Registry interface {
	Register(strategy Strategy) error
	Get(name string) (Strategy, error)
	List() []string
	All() []Strategy
}

// RegistryV1 is the default Registry implementation.
type RegistryV1 struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() Registry {
	return &RegistryV1{
		strategies: make(map[string]Strategy),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with the built-in strategies
// registered.
func NewDefaultRegistry() Registry {
	registry := NewRegistry()
	for _, s := range []Strategy{
		NewEMAMomentum(),
		NewTrendContinuation(),
		NewBreakoutExpansion(),
		NewLiquiditySweep(),
	} {
		// Built-in names are unique, registration cannot fail.
		_ = registry.Register(s)
	}

	return registry
}

// Register adds a strategy to the registry.
func (r *RegistryV1) Register(strategy Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strategy.Name()
	if _, exists := r.strategies[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists,
			"strategy %s already registered", name)
	}

	r.strategies[name] = strategy

	return nil
}

// Get retrieves a strategy by name.
func (r *RegistryV1) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	strategy, exists := r.strategies[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound,
			"strategy %s not found", name)
	}

	return strategy, nil
}

// List returns the registered strategy names, sorted.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// All returns the registered strategies ordered by name.
func (r *RegistryV1) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		strategies = append(strategies, r.strategies[name])
	}

	return strategies
}
