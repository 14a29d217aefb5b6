// Package selection asks the model which component shows an input best and
// which fields it displays.
package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/inference"
	"github.com/next-gen-ui/ngui-mcp/internal/prompts"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Strategy selects a component and its fields for one parsed input.
type Strategy interface {
	Name() string
	Select(ctx context.Context, port inference.Port, query string, input *types.InputData) (*types.UIComponentMetadata, error)
}

// New returns the strategy configured by name (config.StrategyOneStep or config.StrategyTwoStep).
func New(name string, resolver *config.Resolver, composer *prompts.Composer, logger *audit.Logger) (Strategy, error) {
	switch name {
	case config.StrategyOneStep, "":
		return NewOneStep(resolver, composer, logger)
	case config.StrategyTwoStep:
		return NewTwoStep(resolver, composer, logger)
	default:
		return nil, fmt.Errorf("%w: unknown selection strategy %q", config.ErrInvalidConfig, name)
	}
}

// base holds what both strategies share.
type base struct {
	resolver *config.Resolver
	composer *prompts.Composer
	logger   *audit.Logger
}

// call invokes the model and records the exchange on md.
func (b *base) call(ctx context.Context, port inference.Port, md *types.UIComponentMetadata, step, system, user string) (string, error) {
	raw, err := port.CallModel(ctx, system, user)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", types.WrapError(types.CodeSelectionTimeout, err, "model call for %s did not finish in time", step)
		}
		return "", types.WrapError(types.CodeInternal, err, "model call for %s failed", step)
	}
	md.LLMInteractions = append(md.LLMInteractions, types.LLMInteraction{
		Step:         step,
		SystemPrompt: system,
		UserPrompt:   user,
		RawResponse:  raw,
	})
	return raw, nil
}

// checkAllowed fails with selection.component_not_allowed listing the allowed set.
func checkAllowed(res *config.Resolved, component string) error {
	if res.IsAllowed(component) {
		return nil
	}
	e := types.NewError(types.CodeSelectionComponentDenied, "component %q is not allowed", component)
	e.AllowedComponents = append([]string(nil), res.AllowedComponents...)
	return e
}

// skipsFieldSelection reports whether the fields of component come from
// configuration instead of the model.
func (b *base) skipsFieldSelection(res *config.Resolved, component string) bool {
	return b.resolver.Catalog().IsHandBuild(component) || !res.Settings(component).LLMConfigure
}

// finish applies hand-build routing, chart correction and pre-set configuration.
func (b *base) finish(md *types.UIComponentMetadata, res *config.Resolved) {
	if md.Fields == nil {
		md.Fields = []types.DataField{}
	}

	if b.resolver.Catalog().IsHandBuild(md.Component) {
		md.ComponentType = md.Component
		md.Component = types.ComponentHandBuild
		md.ChartType = ""
		md.Fields = []types.DataField{}
		return
	}

	if prev, ok := correctChartType(md, res.IsAllowed); ok {
		b.logger.LogWarning("selection", "chart type corrected from reason for selection", map[string]interface{}{
			"input_id": md.ID,
			"from":     prev,
			"to":       md.Component,
		})
	} else if !types.IsChartComponent(md.Component) {
		md.ChartType = ""
	}

	settings := res.Settings(md.Component)
	if settings.LLMConfigure {
		return
	}
	md.Fields = append([]types.DataField{}, settings.PresetFields...)
	if settings.PresetTitle != "" {
		md.Title = settings.PresetTitle
	}
}

// decodeObject trims, parses and canonicalizes a response expected to hold one object.
func decodeObject(raw string) (map[string]any, error) {
	v, err := decodeLenient(TrimToJSON(raw))
	if err != nil {
		return nil, err
	}
	v = canonicalize(v)
	if arr, ok := v.([]any); ok && len(arr) == 1 {
		v = arr[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, types.NewError(types.CodeSelectionMalformedJSON, "model response must be a JSON object")
	}
	return obj, nil
}

func requireKeys(obj map[string]any, keys ...string) error {
	for _, key := range keys {
		if v, ok := obj[key]; !ok || v == nil {
			return types.NewError(types.CodeSelectionMissingField, "model response has no %q", key)
		}
	}
	return nil
}

func userPrompt(query string, input *types.InputData) (string, error) {
	user, err := prompts.UserPrompt(query, input.Parsed)
	if err != nil {
		return "", types.WrapError(types.CodeInternal, err, "failed to build user prompt")
	}
	return user, nil
}
