package transport

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-vss/core"
)

// Factory builds an adapter from free-form settings.
type Factory func(settings map[string]any) (core.TransportAdapter, error)

// Registry maps transport kinds, compared case-insensitively, to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// NewDefaultRegistry shares one REST adapter and builds an in-process
// adapter around the http.Handler found under the "handler" setting.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Provide(NewRESTAdapter(nil))
	_ = registry.Register(KindInProcess, func(settings map[string]any) (core.TransportAdapter, error) {
		handler, _ := settings["handler"].(http.Handler)
		if handler == nil {
			return nil, fmt.Errorf("transport: %s adapter needs an http.Handler under \"handler\"", KindInProcess)
		}
		return NewHandlerAdapter(handler), nil
	})
	return registry
}

func (r *Registry) Register(kind string, factory Factory) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}
	if factory == nil {
		return fmt.Errorf("transport: factory for %q is nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.factories[kind]; taken {
		return fmt.Errorf("transport: kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Provide registers adapter under its own kind; every Build returns it.
func (r *Registry) Provide(adapter core.TransportAdapter) error {
	if adapter == nil {
		return fmt.Errorf("transport: adapter is nil")
	}
	return r.Register(adapter.Kind(), func(map[string]any) (core.TransportAdapter, error) {
		return adapter, nil
	})
}

func (r *Registry) Kinds() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

func (r *Registry) Build(kind string, settings map[string]any) (core.TransportAdapter, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	factory := r.factories[kind]
	r.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("transport: kind %q not registered", kind)
	}
	adapter, err := factory(maps.Clone(settings))
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport: factory for %q returned no adapter", kind)
	}
	return adapter, nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

var _ core.TransportRegistry = (*Registry)(nil)
