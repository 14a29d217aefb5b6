package mcp

import (
	"context"

	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Generator runs the generation pipeline for a request
type Generator interface {
	GenerateUI(ctx context.Context, query string, inputs []types.InputData, componentSystem string) (*types.GenerateResult, error)
}

// ComponentLister lists the components selectable for a data type
type ComponentLister interface {
	Components(dataType string) ([]types.ComponentInfo, error)
}

// ComponentListerFunc adapts a function to ComponentLister
type ComponentListerFunc func(dataType string) ([]types.ComponentInfo, error)

// Components calls f(dataType).
func (f ComponentListerFunc) Components(dataType string) ([]types.ComponentInfo, error) {
	return f(dataType)
}
