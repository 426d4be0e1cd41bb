package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/logger"
)

// stageSpec describes how one stage is bounded and what it degrades to.
type stageSpec[T any] struct {
	stage              triage.Stage
	timeout            time.Duration
	defaultConfidence  float64
	fallback           T
	fallbackConfidence float64
}

// stageOutcome pairs the typed stage output with its trace entry.
type stageOutcome[T any] struct {
	value  T
	result triage.StageResult
}

// stageInvoke performs the capability call. A nil confidence means the
// adapter did not report one.
type stageInvoke[T any] func(ctx context.Context) (T, *float64, error)

type stageReply[T any] struct {
	value      T
	confidence *float64
	err        error
}

// runStage executes exactly one capability call under the stage deadline and
// normalizes the outcome. It never returns an error: failures, timeouts and
// panics become a degraded StageResult carrying the fallback output.
func runStage[T any](ctx context.Context, spec stageSpec[T], invoke stageInvoke[T]) stageOutcome[T] {
	start := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	replies := make(chan stageReply[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				replies <- stageReply[T]{err: fmt.Errorf("%w: %s panicked: %v", triage.ErrAdapter, spec.stage, p)}
			}
		}()
		v, conf, err := invoke(stageCtx)
		replies <- stageReply[T]{value: v, confidence: conf, err: err}
	}()

	var reply stageReply[T]
	select {
	case reply = <-replies:
	case <-stageCtx.Done():
		reply.err = stageCtx.Err()
	}

	res := triage.StageResult{
		Stage:     spec.stage,
		StartedAt: start,
		Duration:  time.Since(start),
	}

	if reply.err == nil {
		conf := spec.defaultConfidence
		if reply.confidence != nil {
			conf = *reply.confidence
		}
		res.Status = triage.StatusSuccess
		res.Output = reply.value
		res.Confidence = triage.Float(conf)
		return stageOutcome[T]{value: reply.value, result: res}
	}

	res.Status, res.Error = classifyStageError(ctx, spec, reply.err)
	res.Output = spec.fallback
	res.Confidence = triage.Float(spec.fallbackConfidence)

	logger.FromContext(ctx).Warn("stage degraded",
		"stage", spec.stage,
		"status", res.Status,
		"error", res.Error,
		"duration", res.Duration,
	)
	return stageOutcome[T]{value: spec.fallback, result: res}
}

// classifyStageError maps a stage error onto a status and trace message.
// ctx is the run context, used to tell a run deadline from a stage deadline.
func classifyStageError[T any](ctx context.Context, spec stageSpec[T], err error) (triage.StageStatus, string) {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return triage.StatusFailed, triage.ReasonRunCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return triage.StatusTimedOut, fmt.Errorf("%w: %s", triage.ErrTimeout, triage.ReasonRunDeadline).Error()
	case errors.Is(err, context.DeadlineExceeded):
		return triage.StatusTimedOut, fmt.Errorf("%w: %s exceeded %s", triage.ErrTimeout, spec.stage, spec.timeout).Error()
	case errors.Is(err, triage.ErrAdapter):
		return triage.StatusFailed, err.Error()
	default:
		return triage.StatusFailed, fmt.Errorf("%w: %w", triage.ErrAdapter, err).Error()
	}
}

// skippedResult records a stage that never ran.
func skippedResult(stage triage.Stage, reason string, fallback any, fallbackConfidence float64) triage.StageResult {
	return triage.StageResult{
		Stage:      stage,
		Status:     triage.StatusSkipped,
		Output:     fallback,
		Confidence: triage.Float(fallbackConfidence),
		Error:      reason,
		StartedAt:  time.Now(),
	}
}
