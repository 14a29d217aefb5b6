// Package render turns component data into the descriptor of a component
// system. The built-in "json" system emits canonical JSON.
package render

import (
	"errors"
	"sort"
	"sync"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Built-in component systems
const (
	SystemJSON     = "json"
	SystemMarkdown = "markdown"
)

// ErrUnsupported is returned by a factory that has no strategy for a component.
var ErrUnsupported = errors.New("component not supported by component system")

// Strategy renders one component.
type Strategy interface {
	Render(data types.ComponentData) (string, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(data types.ComponentData) (string, error)

func (f StrategyFunc) Render(data types.ComponentData) (string, error) {
	return f(data)
}

// Factory provides the render strategy of a component system per component.
type Factory interface {
	GetRenderStrategy(component string) (Strategy, error)
}

// Registry holds the factories of every known component system.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	strict    bool
	logger    *audit.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes an unknown component system an error instead of a
// fallback to json.
func WithStrict(strict bool) Option {
	return func(r *Registry) { r.strict = strict }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *audit.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry returns a registry with the json and markdown systems.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories: map[string]Factory{
			SystemJSON:     jsonFactory{},
			SystemMarkdown: markdownFactory{},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces a component system.
func (r *Registry) Register(system string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[system] = f
}

// Systems lists the registered component systems.
func (r *Registry) Systems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether system is registered.
func (r *Registry) Has(system string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[system]
	return ok
}

// Strategy returns the strategy for a component in a system. Unknown systems
// and unsupported components fall back to json unless the registry is strict,
// in which case an unknown system is a render.unknown_system error.
func (r *Registry) Strategy(system, component string) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[system]
	r.mu.RUnlock()

	if !ok {
		if r.strict {
			return nil, types.NewError(types.CodeRenderUnknownSystem, "unknown component system %q", system)
		}
		r.logger.LogWarning("render", "unknown component system, using json", map[string]interface{}{
			"component_system": system,
			"component":        component,
		})
		return jsonFactory{}.GetRenderStrategy(component)
	}

	s, err := f.GetRenderStrategy(component)
	if errors.Is(err, ErrUnsupported) {
		r.logger.LogWarning("render", "component not supported, using json", map[string]interface{}{
			"component_system": system,
			"component":        component,
		})
		return jsonFactory{}.GetRenderStrategy(component)
	}
	if err != nil {
		return nil, types.WrapError(types.CodeInternal, err, "failed to get render strategy")
	}
	return s, nil
}

// Render renders data with the given component system.
func (r *Registry) Render(system string, data types.ComponentData) (types.Rendering, error) {
	s, err := r.Strategy(system, data.ComponentName())
	if err != nil {
		return types.Rendering{}, err
	}
	content, err := s.Render(data)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) {
			return types.Rendering{}, err
		}
		return types.Rendering{}, types.WrapError(types.CodeInternal, err, "failed to render %s", data.ComponentName())
	}
	return types.Rendering{ID: data.ComponentID(), Content: content}, nil
}
