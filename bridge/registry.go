package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrBridgeExists is returned when registering a duplicate bridge name.
var ErrBridgeExists = errors.New("bridge already registered")

// Registry tracks the live bridges of one process so shutdown can reach
// them. It is created by the entry point and passed to whoever needs it;
// there is no package-level instance.
type Registry struct {
	mu        sync.RWMutex
	bridges   map[string]Bridge
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bridges:   make(map[string]Bridge),
		factories: make(map[string]Factory),
	}
}

// RegisterFactory registers how to build bridges for a transport mode.
func (r *Registry) RegisterFactory(mode string, factory Factory) {
	if mode == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[mode] = factory
}

// Modes returns the transport modes with a registered factory, sorted.
func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for mode := range r.factories {
		out = append(out, mode)
	}
	sort.Strings(out)
	return out
}

// Open builds a bridge with the factory for mode and registers it under
// name. The bridge is not connected.
func (r *Registry) Open(name, mode string) (Bridge, error) {
	r.mu.RLock()
	factory, ok := r.factories[mode]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	b, err := factory(name)
	if err != nil {
		return nil, fmt.Errorf("creating %s bridge %q: %w", mode, name, err)
	}
	if err := r.Register(name, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Register adds a bridge under name.
func (r *Registry) Register(name string, b Bridge) error {
	if b == nil {
		return fmt.Errorf("%w: bridge is nil", ErrInvalidArgument)
	}
	if name == "" {
		return fmt.Errorf("%w: bridge name is required", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bridges[name]; exists {
		return fmt.Errorf("%w: %s", ErrBridgeExists, name)
	}
	r.bridges[name] = b
	return nil
}

// Unregister removes a bridge without disconnecting it and returns it.
func (r *Registry) Unregister(name string) (Bridge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bridges[name]
	delete(r.bridges, name)
	return b, ok
}

// Get retrieves a bridge by name.
func (r *Registry) Get(name string) (Bridge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bridges[name]
	return b, ok
}

// Names returns registered bridge names sorted for deterministic output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bridges))
	for name := range r.bridges {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered bridges.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}

// StatusAll reports the status of every registered bridge keyed by name.
func (r *Registry) StatusAll(ctx context.Context) map[string]ConnectionStatus {
	out := make(map[string]ConnectionStatus)
	for _, name := range r.Names() {
		if b, ok := r.Get(name); ok {
			out[name] = b.Status(ctx)
		}
	}
	return out
}

// DisconnectAll disconnects and unregisters every bridge. Bridges are
// disconnected concurrently; all failures are joined into the returned
// error.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	r.mu.Lock()
	bridges := r.bridges
	r.bridges = make(map[string]Bridge)
	r.mu.Unlock()

	// Wait reports only the first failure, so each goroutine also records
	// its own error in its slot.
	var g errgroup.Group
	errs := make([]error, len(bridges))
	i := 0
	for name, b := range bridges {
		slot := i
		i++
		g.Go(func() error {
			if err := b.Disconnect(ctx); err != nil {
				errs[slot] = fmt.Errorf("disconnecting %s: %w", name, err)
			}
			return errs[slot]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}
