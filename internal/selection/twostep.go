package selection

import (
	"context"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/inference"
	"github.com/next-gen-ui/ngui-mcp/internal/prompts"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// TwoStep first asks for the component only, then for its fields.
// The second call is skipped for hand-build components and for components
// whose fields are fixed in configuration.
type TwoStep struct {
	base
}

// NewTwoStep creates the strategy and builds the global step-1 prompt.
func NewTwoStep(resolver *config.Resolver, composer *prompts.Composer, logger *audit.Logger) (*TwoStep, error) {
	if err := composer.Prefill(prompts.KindStep1); err != nil {
		return nil, err
	}
	return &TwoStep{base{resolver: resolver, composer: composer, logger: logger}}, nil
}

func (s *TwoStep) Name() string { return config.StrategyTwoStep }

func (s *TwoStep) Select(ctx context.Context, port inference.Port, query string, input *types.InputData) (*types.UIComponentMetadata, error) {
	res := s.resolver.Resolve(input.Type)

	system, err := s.composer.Step1SystemPrompt(input.Type)
	if err != nil {
		return nil, types.WrapError(types.CodeInternal, err, "failed to build system prompt")
	}
	user, err := userPrompt(query, input)
	if err != nil {
		return nil, err
	}

	md := &types.UIComponentMetadata{ID: input.ID}
	raw, err := s.call(ctx, port, md, types.StepComponentSelection, system, user)
	if err != nil {
		return nil, err
	}

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if err := requireKeys(obj, "component", "title"); err != nil {
		return nil, err
	}
	if err := validateShape("component.json", obj); err != nil {
		return nil, err
	}
	choice, err := parseComponentChoice(obj)
	if err != nil {
		return nil, err
	}
	if err := checkAllowed(res, choice.Component); err != nil {
		return nil, err
	}

	md.Component = choice.Component
	md.Title = choice.Title
	md.ReasonForSelection = choice.Reason
	md.ConfidenceScore = choice.Confidence
	md.ChartType = choice.ChartType

	if !s.skipsFieldSelection(res, choice.Component) {
		if md.Fields, err = s.selectFields(ctx, port, md, input.Type, choice.Component, user); err != nil {
			return nil, err
		}
	}

	s.finish(md, res)
	return md, nil
}

func (s *TwoStep) selectFields(ctx context.Context, port inference.Port, md *types.UIComponentMetadata,
	dataType, component, user string) ([]types.DataField, error) {
	system, err := s.composer.Step2SystemPrompt(dataType, component)
	if err != nil {
		return nil, types.WrapError(types.CodeInternal, err, "failed to build field selection prompt")
	}

	raw, err := s.call(ctx, port, md, types.StepFieldSelection, system, user)
	if err != nil {
		return nil, err
	}

	v, err := decodeLenient(TrimToJSON(raw))
	if err != nil {
		return nil, err
	}
	v = canonicalize(v)
	if obj, ok := v.(map[string]any); ok {
		fields, ok := obj["fields"]
		if !ok {
			return nil, types.NewError(types.CodeSelectionMissingField, "model response has no %q", "fields")
		}
		v = fields
	}
	if err := validateShape("fields.json", v); err != nil {
		return nil, err
	}
	return parseFields(v)
}
