package action

import (
	"context"
	"fmt"
	"sync"
)

// MutationFunc applies one named mutation against its module.
type MutationFunc func(ctx context.Context, payload map[string]any) error

// ModuleFunc handles every mutation of one module. Used when a module's
// write path takes the mutation name as data rather than one entry point
// per mutation.
type ModuleFunc func(ctx context.Context, mutation string, payload map[string]any) error

// Registry dispatches executions by target module and mutation. An exact
// module+mutation registration wins over a module-wide one. It satisfies
// Executor.
type Registry struct {
	mu      sync.RWMutex
	exact   map[string]MutationFunc
	modules map[string]ModuleFunc
}

func NewRegistry() *Registry {
	return &Registry{
		exact:   make(map[string]MutationFunc),
		modules: make(map[string]ModuleFunc),
	}
}

// Register binds a handler to a single module+mutation pair.
func (r *Registry) Register(module, mutation string, fn MutationFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[module+"."+mutation] = fn
}

// RegisterModule binds a catch-all handler for one module.
func (r *Registry) RegisterModule(module string, fn ModuleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[module] = fn
}

// Execute routes to the registered handler. An unregistered target is an
// error; the workflow records it as an execution failure.
func (r *Registry) Execute(ctx context.Context, module, mutation string, payload map[string]any) error {
	r.mu.RLock()
	fn, ok := r.exact[module+"."+mutation]
	mfn, mok := r.modules[module]
	r.mu.RUnlock()

	if ok {
		return fn(ctx, payload)
	}
	if mok {
		return mfn(ctx, mutation, payload)
	}
	return fmt.Errorf("action.Registry: no executor for %s.%s", module, mutation)
}
