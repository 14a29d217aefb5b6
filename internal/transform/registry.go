// Package transform turns selected component metadata and parsed input data
// into typed, render-ready component data.
package transform

import (
	"sync"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Transformer builds the component data for one selection.
// A non-nil error may come with partially built data for diagnostics.
type Transformer interface {
	Transform(md *types.UIComponentMetadata, data any) (types.ComponentData, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(md *types.UIComponentMetadata, data any) (types.ComponentData, error)

func (f TransformerFunc) Transform(md *types.UIComponentMetadata, data any) (types.ComponentData, error) {
	return f(md, data)
}

type builder interface {
	build(c *Context) types.ComponentData
}

// phased runs preprocess, extract and build in order.
type phased struct {
	array bool
	b     builder
}

func (p phased) Transform(md *types.UIComponentMetadata, data any) (types.ComponentData, error) {
	c := Preprocess(md)
	if p.array {
		c.ExtractArray(data)
	} else {
		c.ExtractSingle(data)
	}
	out := p.b.build(c)
	if len(c.Errors) > 0 {
		return out, c.Errors
	}
	return out, nil
}

type handBuild struct{}

func (handBuild) Transform(md *types.UIComponentMetadata, data any) (types.ComponentData, error) {
	return &types.HandBuildComponent{
		Base:          types.Base{Component: types.ComponentHandBuild, ID: md.ID, Title: md.Title},
		ComponentType: md.ComponentType,
		Data:          data,
	}, nil
}

// Registry maps component names to transformers.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
	chart        Transformer
}

// NewRegistry returns a registry holding the built-in transformers.
func NewRegistry() *Registry {
	return &Registry{
		transformers: map[string]Transformer{
			types.ComponentOneCard:     phased{b: oneCardTransformer{}},
			types.ComponentImage:       phased{b: imageTransformer{}},
			types.ComponentVideoPlayer: phased{b: videoTransformer{}},
			types.ComponentAudioPlayer: phased{b: audioTransformer{}},
			types.ComponentSetOfCards:  phased{array: true, b: setOfCardsTransformer{}},
			types.ComponentTable:       phased{array: true, b: tableTransformer{}},
			types.ComponentHandBuild:   handBuild{},
		},
		chart: phased{array: true, b: chartTransformer{}},
	}
}

// Register adds or replaces the transformer for a component.
func (r *Registry) Register(component string, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[component] = t
}

// Get returns the transformer for a component. Chart components without a
// dedicated registration share the chart transformer.
func (r *Registry) Get(component string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.transformers[component]; ok {
		return t, nil
	}
	if types.IsChartComponent(component) {
		return r.chart, nil
	}
	return nil, types.NewError(types.CodeInternal, "no data transformer for component %q", component)
}

// Transform looks up the transformer for md.Component and runs it.
func (r *Registry) Transform(md *types.UIComponentMetadata, data any) (types.ComponentData, error) {
	t, err := r.Get(md.Component)
	if err != nil {
		return nil, err
	}
	return t.Transform(md, data)
}
