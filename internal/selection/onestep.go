package selection

import (
	"context"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/inference"
	"github.com/next-gen-ui/ngui-mcp/internal/prompts"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// OneStep selects component and fields in a single model call.
type OneStep struct {
	base
}

// NewOneStep creates the strategy and builds the global system prompt.
func NewOneStep(resolver *config.Resolver, composer *prompts.Composer, logger *audit.Logger) (*OneStep, error) {
	if err := composer.Prefill(prompts.KindOneStep); err != nil {
		return nil, err
	}
	return &OneStep{base{resolver: resolver, composer: composer, logger: logger}}, nil
}

func (s *OneStep) Name() string { return config.StrategyOneStep }

// SystemPrompt returns the cached system prompt for dataType.
func (s *OneStep) SystemPrompt(dataType string) (string, error) {
	return s.composer.OneStepSystemPrompt(dataType)
}

func (s *OneStep) Select(ctx context.Context, port inference.Port, query string, input *types.InputData) (*types.UIComponentMetadata, error) {
	res := s.resolver.Resolve(input.Type)

	system, err := s.composer.OneStepSystemPrompt(input.Type)
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
		if err := requireKeys(obj, "fields"); err != nil {
			return nil, err
		}
		if md.Fields, err = parseFields(obj["fields"]); err != nil {
			return nil, err
		}
	}

	s.finish(md, res)
	return md, nil
}
