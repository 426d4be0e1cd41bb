package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	cfotel "github.com/Strob0t/TicketForge/internal/adapter/otel"
	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/feedback"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/logger"
	"github.com/Strob0t/TicketForge/internal/port/database"
	"github.com/Strob0t/TicketForge/internal/port/messagequeue"
)

// FeedbackService records corrections against finished runs.
type FeedbackService struct {
	store   database.Store
	queue   messagequeue.Queue
	metrics *cfotel.Metrics
}

// NewFeedbackService creates a FeedbackService.
func NewFeedbackService(store database.Store, queue messagequeue.Queue) *FeedbackService {
	return &FeedbackService{store: store, queue: queue}
}

// SetMetrics attaches otel instruments.
func (s *FeedbackService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Record validates a correction, snapshots the run's original answer into it,
// stores it and publishes it. The run must exist.
func (s *FeedbackService) Record(ctx context.Context, runID string, req feedback.CreateRequest) (*feedback.Correction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.CorrectedCategory)
	if category != "" {
		canon, ok := triage.CanonicalLabel(triage.Categories, category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
		}
		category = canon
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run for feedback: %w", err)
	}

	c := &feedback.Correction{
		RunID:             run.RunID,
		Source:            req.Source,
		CorrectedCategory: category,
		CorrectedResponse: strings.TrimSpace(req.CorrectedResponse),
		Rating:            req.Rating,
		Comment:           strings.TrimSpace(req.Comment),
		OriginalCategory:  run.Category,
		OriginalScore:     run.SystemConfidence,
	}
	if err := s.store.CreateCorrection(ctx, c); err != nil {
		return nil, err
	}

	logger.FromContext(logger.WithRunID(ctx, run.RunID)).Info("feedback recorded",
		"correction_id", c.ID,
		"source", c.Source,
		"rating", c.Rating,
	)
	publish(ctx, s.queue, messagequeue.SubjectFeedbackRecorded, messagequeue.FeedbackRecordedPayload{
		CorrectionID:      c.ID,
		RunID:             c.RunID,
		Source:            string(c.Source),
		OriginalCategory:  c.OriginalCategory,
		CorrectedCategory: c.CorrectedCategory,
		Rating:            c.Rating,
	})
	return c, nil
}

// List returns the corrections recorded for a run.
func (s *FeedbackService) List(ctx context.Context, runID string) ([]feedback.Correction, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.ListCorrections(ctx, runID)
}

// StartSubscriber consumes triage.feedback.recorded events and feeds the
// correction metrics. Call the returned func to stop consuming.
func (s *FeedbackService) StartSubscriber(ctx context.Context) (func(), error) {
	cancel, err := s.queue.Subscribe(ctx, messagequeue.SubjectFeedbackRecorded, s.handleRecorded)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectFeedbackRecorded, err)
	}
	return cancel, nil
}

func (s *FeedbackService) handleRecorded(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.FeedbackRecordedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode feedback event: %w", err)
	}
	relabeled := p.CorrectedCategory != "" && p.CorrectedCategory != p.OriginalCategory
	s.metrics.RecordCorrection(ctx, p.OriginalCategory, relabeled, p.Rating)
	logger.FromContext(logger.WithRunID(ctx, p.RunID)).Debug("feedback event consumed",
		"correction_id", p.CorrectionID,
		"relabeled", relabeled,
	)
	return nil
}
