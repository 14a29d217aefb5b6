// Package orchestrator runs the generation pipeline for every input of a
// request: input parsing, component selection, data transformation and
// rendering.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/catalog"
	"github.com/next-gen-ui/ngui-mcp/internal/config"
	"github.com/next-gen-ui/ngui-mcp/internal/inference"
	"github.com/next-gen-ui/ngui-mcp/internal/inputdata"
	"github.com/next-gen-ui/ngui-mcp/internal/render"
	"github.com/next-gen-ui/ngui-mcp/internal/selection"
	"github.com/next-gen-ui/ngui-mcp/internal/transform"
	"github.com/next-gen-ui/ngui-mcp/internal/validation"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ErrDuplicateID is returned when two inputs of one request share an id.
var ErrDuplicateID = errors.New("duplicate input id")

// Orchestrator fans a request out into one independent unit per input.
type Orchestrator struct {
	strategy     selection.Strategy
	port         inference.Port
	inputs       *inputdata.Registry
	transformers *transform.Registry
	renderers    *render.Registry
	validator    *validation.Validator
	logger       *audit.Logger
	metrics      *Metrics

	system       string
	maxInputSize int
	concurrency  int
	unitTimeout  time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInputRegistry replaces the input-data transformer registry.
func WithInputRegistry(r *inputdata.Registry) Option {
	return func(o *Orchestrator) { o.inputs = r }
}

// WithTransformRegistry replaces the data transformer registry.
func WithTransformRegistry(r *transform.Registry) Option {
	return func(o *Orchestrator) { o.transformers = r }
}

// WithRenderRegistry replaces the renderer registry.
func WithRenderRegistry(r *render.Registry) Option {
	return func(o *Orchestrator) { o.renderers = r }
}

// WithLogger sets the audit logger.
func WithLogger(l *audit.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEngineConfig applies the engine section of the configuration.
func WithEngineConfig(cfg config.EngineConfig) Option {
	return func(o *Orchestrator) {
		if cfg.ComponentSystem != "" {
			o.system = cfg.ComponentSystem
		}
		if cfg.MaxInputSize > 0 {
			o.maxInputSize = cfg.MaxInputSize
		}
		if cfg.Concurrency > 0 {
			o.concurrency = cfg.Concurrency
		}
		o.unitTimeout = cfg.UnitTimeout
	}
}

// New creates an orchestrator that selects components with strategy,
// calling the model through port.
func New(strategy selection.Strategy, port inference.Port, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		strategy:     strategy,
		port:         port,
		inputs:       inputdata.NewRegistry(),
		transformers: transform.NewRegistry(),
		renderers:    render.NewRegistry(),
		validator:    validation.NewValidator(),
		system:       render.SystemJSON,
		maxInputSize: config.DefaultMaxInputSize,
		concurrency:  4,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// unit is the outcome of one input.
type unit struct {
	metadata  *types.UIComponentMetadata
	data      types.ComponentData
	rendering *types.Rendering
	err       *types.ErrorEntry
}

// GenerateUI runs the pipeline for every input. A failing input is reported
// in the result's errors and never affects its peers. Results follow input
// order. An empty componentSystem selects the configured default.
//
// The returned error is only set when the request as a whole is rejected.
func (o *Orchestrator) GenerateUI(ctx context.Context, query string, inputs []types.InputData, componentSystem string) (*types.GenerateResult, error) {
	inputs, err := assignIDs(inputs)
	if err != nil {
		return nil, err
	}
	if componentSystem == "" {
		componentSystem = o.system
	}

	correlationID := audit.NewCorrelationID()
	ctx, span := startSpan(ctx, traceSpanRequest,
		attribute.String(traceAttrCorrelationID, correlationID),
		attribute.Int(traceAttrInputs, len(inputs)))
	defer span.End()

	o.logger.LogRequest(correlationID, "generate_ui", map[string]interface{}{
		"inputs":           len(inputs),
		"component_system": componentSystem,
		"query_digest":     audit.Digest(query),
	})

	units := make([]unit, len(inputs))
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range inputs {
		i := i
		g.Go(func() error {
			units[i] = o.runUnit(ctx, correlationID, query, inputs[i], componentSystem)
			return nil
		})
	}
	_ = g.Wait()

	result := &types.GenerateResult{
		Renderings:         []types.Rendering{},
		ComponentsMetadata: []types.UIComponentMetadata{},
		ComponentsData:     []types.ComponentData{},
		Errors:             []types.ErrorEntry{},
	}
	for _, u := range units {
		if u.metadata != nil {
			result.ComponentsMetadata = append(result.ComponentsMetadata, *u.metadata)
		}
		if u.data != nil {
			result.ComponentsData = append(result.ComponentsData, u.data)
		}
		if u.rendering != nil {
			result.Renderings = append(result.Renderings, *u.rendering)
		}
		if u.err != nil {
			result.Errors = append(result.Errors, *u.err)
		}
	}
	markSpanResult(span, nil)
	return result, nil
}

// assignIDs copies inputs, giving every input without an id a random one.
func assignIDs(inputs []types.InputData) ([]types.InputData, error) {
	out := make([]types.InputData, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		if seen[in.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, in.ID)
		}
		seen[in.ID] = true
		out[i] = in
	}
	return out, nil
}

func (o *Orchestrator) runUnit(ctx context.Context, correlationID, query string, input types.InputData, system string) (u unit) {
	o.metrics.unitStarted()
	defer o.metrics.unitDone()

	ctx, span := startSpan(ctx, traceSpanUnit, attribute.String(traceAttrInputID, input.ID))
	defer span.End()

	stage := types.StageInput
	fail := func(err error) unit {
		entry := &types.ErrorEntry{ID: input.ID, Stage: stage, Code: types.CodeOf(err), Message: err.Error()}
		u.err = entry
		o.metrics.IncFailure(stage, string(entry.Code))
		markSpanResult(span, err)
		return u
	}

	defer func() {
		if r := recover(); r != nil {
			err := types.NewError(types.CodeInternal, "panic in %s stage: %v", stage, r)
			o.logger.LogError("orchestrator", err, map[string]interface{}{"input_id": input.ID, "stage": stage})
			u = fail(err)
		}
	}()

	if o.unitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.unitTimeout)
		defer cancel()
	}

	// input
	err := o.stage(ctx, stage, func(context.Context) error {
		if len(input.Data) > o.maxInputSize {
			return types.NewError(types.CodeInputTooLarge, "input is %d bytes, limit is %d", len(input.Data), o.maxInputSize)
		}
		if err := o.validator.ValidateInputData(&input); err != nil {
			return types.WrapError(types.CodeInputUnparsable, err, "input rejected")
		}
		return o.inputs.Apply(&input)
	})
	o.logger.LogStage(audit.EventRequest, input.ID, correlationID, err, map[string]interface{}{
		"input_digest": audit.Digest(input.Data),
		"input_bytes":  len(input.Data),
		"data_type":    input.Type,
	})
	if err != nil {
		return fail(err)
	}

	// selection
	stage = types.StageSelection
	var md *types.UIComponentMetadata
	err = o.stage(ctx, stage, func(ctx context.Context) error {
		var err error
		md, err = o.strategy.Select(ctx, o.port, query, &input)
		return err
	})
	details := map[string]interface{}{"strategy": o.strategy.Name()}
	if md != nil {
		details["component"] = md.Component
		details["fields"] = len(md.Fields)
	}
	o.logger.LogStage(audit.EventSelection, input.ID, correlationID, err, details)
	if err != nil {
		return fail(err)
	}
	u.metadata = md
	span.SetAttributes(attribute.String(traceAttrComponent, md.Component))

	// transformation
	stage = types.StageTransformation
	var data types.ComponentData
	err = o.stage(ctx, stage, func(context.Context) error {
		var err error
		data, err = o.transformers.Transform(md, input.Parsed)
		return err
	})
	o.logger.LogStage(audit.EventTransform, input.ID, correlationID, err, map[string]interface{}{"component": md.Component})
	u.data = data
	if err != nil {
		return fail(err)
	}

	// rendering
	stage = types.StageRendering
	var rendering types.Rendering
	err = o.stage(ctx, stage, func(context.Context) error {
		var err error
		rendering, err = o.renderers.Render(system, data)
		return err
	})
	o.logger.LogStage(audit.EventRender, input.ID, correlationID, err, map[string]interface{}{
		"component":        md.Component,
		"component_system": system,
	})
	if err != nil {
		return fail(err)
	}
	rendering.ID = input.ID
	u.rendering = &rendering

	o.metrics.IncSuccess()
	markSpanResult(span, nil)
	return u
}

// stage runs fn inside a span and records its duration.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := startSpan(ctx, traceSpanStage, attribute.String(traceAttrStage, name))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	o.metrics.ObserveStage(name, status, time.Since(start))
	markSpanResult(span, err)
	return err
}

// Components lists the components selectable for a data type.
func Components(resolver *config.Resolver, dataType string) ([]types.ComponentInfo, error) {
	res := resolver.Resolve(dataType)
	entries, err := resolver.Catalog().Select(res.AllowedComponents, res.CatalogOverrides())
	if err != nil {
		return nil, err
	}
	return catalog.Info(entries), nil
}
