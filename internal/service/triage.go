package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	cfotel "github.com/Strob0t/TicketForge/internal/adapter/otel"
	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/logger"
	"github.com/Strob0t/TicketForge/internal/port/broadcast"
	"github.com/Strob0t/TicketForge/internal/port/database"
	"github.com/Strob0t/TicketForge/internal/port/messagequeue"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	persistTimeout   = 5 * time.Second
)

// TriageService admits triage requests, runs them through the Coordinator and
// records the outcome. Persistence and publication are best-effort: a stored
// or published copy failing never fails the run.
type TriageService struct {
	coord   *Coordinator
	store   database.Store
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	sem     *semaphore.Weighted
	metrics *cfotel.Metrics
}

// NewTriageService creates a TriageService admitting at most maxConcurrent
// simultaneous runs.
func NewTriageService(coord *Coordinator, store database.Store, queue messagequeue.Queue, maxConcurrent int64) *TriageService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &TriageService{
		coord: coord,
		store: store,
		queue: queue,
		sem:   semaphore.NewWeighted(maxConcurrent),
	}
}

// SetBroadcaster wires live run notifications.
func (s *TriageService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetMetrics attaches otel instruments.
func (s *TriageService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Submit validates and runs one triage request. It returns ErrBusy when the
// concurrent-run limit is reached.
func (s *TriageService) Submit(ctx context.Context, req triage.Request) (*triage.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.sem.TryAcquire(1) {
		s.metrics.RecordRunRejected(ctx, "busy")
		return nil, fmt.Errorf("%w: concurrent run limit reached", domain.ErrBusy)
	}
	defer s.sem.Release(1)

	res := s.coord.Run(ctx, req)

	// Recording outlives the caller's context.
	bg, cancel := context.WithTimeout(context.WithoutCancel(logger.WithRunID(ctx, res.RunID)), persistTimeout)
	defer cancel()
	s.persist(bg, res)
	s.announce(bg, res)
	return res, nil
}

func (s *TriageService) persist(ctx context.Context, res *triage.Result) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(ctx, res); err != nil {
		logger.FromContext(ctx).Error("failed to save triage run", "error", err)
	}
}

func (s *TriageService) announce(ctx context.Context, res *triage.Result) {
	sum := res.Summarize()
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventRunCompleted, broadcast.RunCompletedEvent{
			RunID:            res.RunID,
			Category:         res.Category,
			Priority:         res.Priority,
			Verdict:          string(res.Verdict.Label),
			SystemConfidence: res.SystemConfidence,
		})
	}
	publish(ctx, s.queue, messagequeue.SubjectRunCompleted, messagequeue.RunCompletedPayload{
		RunID:            res.RunID,
		Category:         res.Category,
		Priority:         res.Priority,
		Sentiment:        res.Sentiment,
		Verdict:          string(res.Verdict.Label),
		SystemConfidence: res.SystemConfidence,
		DegradedStages:   sum.Degraded,
		DurationMS:       res.Duration.Milliseconds(),
	})
}

// Get returns a stored run by ID.
func (s *TriageService) Get(ctx context.Context, id string) (*triage.Result, error) {
	return s.store.GetRun(ctx, id)
}

// List returns the most recent runs. limit is clamped to a sane range.
func (s *TriageService) List(ctx context.Context, limit int) ([]triage.Summary, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return s.store.ListRuns(ctx, limit)
}

// publish marshals payload and publishes it on subject. A nil queue or a
// publish failure is logged and otherwise ignored.
func publish(ctx context.Context, q messagequeue.Queue, subject string, payload any) {
	if q == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := q.Publish(ctx, subject, data); err != nil {
		logger.FromContext(ctx).Error("failed to publish to queue", "subject", subject, "error", err)
	}
}
