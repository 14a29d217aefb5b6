package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceScope = "ngui-mcp/orchestrator"

	traceSpanRequest = "ngui.generate"
	traceSpanUnit    = "ngui.input"
	traceSpanStage   = "ngui.stage"

	traceAttrCorrelationID = "ngui.correlation_id"
	traceAttrInputID       = "ngui.input_id"
	traceAttrInputs        = "ngui.inputs"
	traceAttrStage         = "ngui.stage"
	traceAttrComponent     = "ngui.component"
	traceAttrStatus        = "ngui.status"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(traceScope).Start(ctx, name, trace.WithAttributes(attrs...))
}

func markSpanResult(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(traceAttrStatus, statusError))
		return
	}
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.String(traceAttrStatus, statusSuccess))
}
