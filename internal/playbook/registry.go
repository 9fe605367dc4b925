package playbook

import (
	"context"
	"io"
	"sync"
)

// HandlerContext carries the collaborators a handler may need. Handlers
// must honor ctx cancellation and must not cause external side effects
// when dryRun is set.
type HandlerContext struct {
	Finding Finding
	Writer  io.Writer
}

// Handler executes one action and reports its result. The returned
// result's Name and Kind are filled in by the executor if left empty.
type Handler func(ctx context.Context, action Action, dryRun bool, hctx *HandlerContext) ActionResult

// RollbackHandler reverses a previously completed action using the token
// it recorded.
type RollbackHandler func(ctx context.Context, action Action, token string, hctx *HandlerContext) error

// BuiltinKinds is the closed set of action kinds the engine ships with.
var BuiltinKinds = []string{"aws", "gcp", "azure", "notification", "script"}

// Registry dispatches action kinds to handlers. Registration is usually
// done once at startup but is safe at any time.
type Registry struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	rollbacks map[string]RollbackHandler
}

// NewRegistry returns an empty registry. Built-in handlers are installed
// by RegisterBuiltins, which needs the provider gateways.
func NewRegistry() *Registry {
	return &Registry{
		handlers:  make(map[string]Handler),
		rollbacks: make(map[string]RollbackHandler),
	}
}

// Register installs or replaces the handler for kind.
func (r *Registry) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// RegisterRollback installs the rollback sub-handler for kind.
func (r *Registry) RegisterRollback(kind string, h RollbackHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbacks[kind] = h
}

// Resolve returns the handler for kind.
func (r *Registry) Resolve(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// ResolveRollback returns the rollback sub-handler for kind.
func (r *Registry) ResolveRollback(kind string) (RollbackHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.rollbacks[kind]
	return h, ok
}

// Kinds returns the registered kinds, for validation messages.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}
