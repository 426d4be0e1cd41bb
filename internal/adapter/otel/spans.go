package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ticketforge"

// StartRunSpan starts a span for one triage run.
func StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage.run",
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// StartStageSpan starts a span for one stage within a run.
func StartStageSpan(ctx context.Context, runID, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage.stage",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.name", stage),
		),
	)
}

// EndStageSpan records the stage outcome on span and ends it.
func EndStageSpan(span trace.Span, status string, confidence float64, errMsg string) {
	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Float64("stage.confidence", confidence),
	)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()
}

// EndRunSpan records the run outcome on span and ends it.
func EndRunSpan(span trace.Span, category string, systemConfidence float64, degraded int) {
	span.SetAttributes(
		attribute.String("triage.category", category),
		attribute.Float64("triage.system_confidence", systemConfidence),
		attribute.Int("triage.degraded_stages", degraded),
	)
	span.End()
}
