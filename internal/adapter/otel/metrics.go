package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "ticketforge"

// Metrics holds all TicketForge metric instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	RunsStarted      metric.Int64Counter
	RunsCompleted    metric.Int64Counter
	RunsRejected     metric.Int64Counter
	StageOutcomes    metric.Int64Counter
	StageDuration    metric.Float64Histogram
	RunDuration      metric.Float64Histogram
	SystemConfidence metric.Float64Histogram
	Corrections      metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("ticketforge.runs.started",
		metric.WithDescription("Number of triage runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("ticketforge.runs.completed",
		metric.WithDescription("Number of triage runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsRejected, err = meter.Int64Counter("ticketforge.runs.rejected",
		metric.WithDescription("Number of triage runs rejected at admission"))
	if err != nil {
		return nil, err
	}

	m.StageOutcomes, err = meter.Int64Counter("ticketforge.stage.outcomes",
		metric.WithDescription("Stage executions by stage and status"))
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram("ticketforge.stage.duration_seconds",
		metric.WithDescription("Stage duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("ticketforge.run.duration_seconds",
		metric.WithDescription("Run duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.SystemConfidence, err = meter.Float64Histogram("ticketforge.run.system_confidence",
		metric.WithDescription("Aggregated system confidence per run"))
	if err != nil {
		return nil, err
	}

	m.Corrections, err = meter.Int64Counter("ticketforge.feedback.corrections",
		metric.WithDescription("Feedback corrections by original category"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordStage counts one stage outcome.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	m.StageOutcomes.Add(ctx, 1, attrs)
	m.StageDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRunStarted counts a run entering the pipeline.
func (m *Metrics) RecordRunStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.RunsStarted.Add(ctx, 1)
}

// RecordRunCompleted records the outcome of a finished run.
func (m *Metrics) RecordRunCompleted(ctx context.Context, systemConfidence float64, d time.Duration, verdict string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("verdict", verdict))
	m.RunsCompleted.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
	m.SystemConfidence.Record(ctx, systemConfidence, attrs)
}

// RecordRunRejected counts a run refused at admission.
func (m *Metrics) RecordRunRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.RunsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCorrection counts one feedback correction. relabeled is true when the
// reviewer chose a different category than the pipeline.
func (m *Metrics) RecordCorrection(ctx context.Context, originalCategory string, relabeled bool, rating int) {
	if m == nil {
		return
	}
	m.Corrections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("original_category", originalCategory),
		attribute.Bool("relabeled", relabeled),
		attribute.Int("rating", rating),
	))
}
