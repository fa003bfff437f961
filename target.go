package authcore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// TargetRegistry maps authenticate target type names to resolvers. It is
// frozen when the engine is built.
type TargetRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]TargetResolver
	frozen    bool
}

// NewTargetRegistry returns an empty registry.
func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{resolvers: make(map[string]TargetResolver)}
}

// Register binds typeName to fn. Must be called before Freeze.
func (r *TargetRegistry) Register(typeName string, fn TargetResolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("target registry frozen")
	}
	if strings.TrimSpace(typeName) == "" {
		return errors.New("target type cannot be empty")
	}
	if fn == nil {
		return errors.New("target resolver cannot be nil")
	}
	if _, exists := r.resolvers[typeName]; exists {
		return errors.New("target type already registered")
	}

	r.resolvers[typeName] = fn
	return nil
}

// Freeze prevents further registrations.
func (r *TargetRegistry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Len returns the number of registered types.
func (r *TargetRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resolvers)
}

// Known reports whether typeName has a resolver.
func (r *TargetRegistry) Known(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolvers[typeName]
	return ok
}

// Resolve loads the host record t points to.
func (r *TargetRegistry) Resolve(ctx context.Context, t *Target) (any, error) {
	if t == nil {
		return nil, ErrUnknownTargetType
	}
	r.mu.RLock()
	fn, ok := r.resolvers[t.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownTargetType
	}
	return fn(ctx, t.ID)
}

// check validates t for attachment. With an empty registry any non-blank
// type is accepted.
func (r *TargetRegistry) check(t *Target) error {
	if t == nil {
		return nil
	}
	if strings.TrimSpace(t.Type) == "" {
		return invalid("target_type", "can't be blank")
	}
	if strings.TrimSpace(t.ID) == "" {
		return invalid("target_id", "can't be blank")
	}
	if r.Len() > 0 && !r.Known(t.Type) {
		return ErrUnknownTargetType
	}
	return nil
}
