package service

import (
	"context"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/broadcast"
	"github.com/Strob0t/TicketForge/internal/port/messagequeue"
)

// ProgressPublisher publishes one StageProgressPayload per finished stage.
type ProgressPublisher struct {
	queue messagequeue.Queue
}

// NewProgressPublisher creates a ProgressPublisher.
func NewProgressPublisher(q messagequeue.Queue) *ProgressPublisher {
	return &ProgressPublisher{queue: q}
}

// StageStarted is a no-op; only finished stages are published.
func (p *ProgressPublisher) StageStarted(context.Context, string, triage.Stage) {}

// StageFinished publishes the stage outcome.
func (p *ProgressPublisher) StageFinished(ctx context.Context, runID string, res triage.StageResult) {
	publish(ctx, p.queue, messagequeue.SubjectStageProgress, messagequeue.StageProgressPayload{
		RunID:      runID,
		Stage:      string(res.Stage),
		Status:     string(res.Status),
		Confidence: res.Confidence,
		Error:      res.Error,
		DurationMS: res.Duration.Milliseconds(),
	})
}

// BroadcastObserver pushes stage progress to live clients.
type BroadcastObserver struct {
	hub broadcast.Broadcaster
}

// NewBroadcastObserver creates a BroadcastObserver.
func NewBroadcastObserver(b broadcast.Broadcaster) *BroadcastObserver {
	return &BroadcastObserver{hub: b}
}

func (o *BroadcastObserver) StageStarted(ctx context.Context, runID string, stage triage.Stage) {
	o.hub.BroadcastEvent(ctx, broadcast.EventStageStarted, broadcast.StageStartedEvent{
		RunID: runID,
		Stage: string(stage),
	})
}

func (o *BroadcastObserver) StageFinished(ctx context.Context, runID string, res triage.StageResult) {
	o.hub.BroadcastEvent(ctx, broadcast.EventStageFinished, broadcast.StageFinishedEvent{
		RunID:      runID,
		Stage:      string(res.Stage),
		Status:     string(res.Status),
		Confidence: res.Confidence,
		Error:      res.Error,
		DurationMS: res.Duration.Milliseconds(),
	})
}
