package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/feedback"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/messagequeue"
)

func seededFeedbackService() (*FeedbackService, *fakeStore, *fakeQueue) {
	store := newFakeStore()
	store.runs["run-1"] = &triage.Result{RunID: "run-1", Category: "Refund", SystemConfidence: 0.89}
	queue := &fakeQueue{}
	return NewFeedbackService(store, queue), store, queue
}

func TestFeedbackService_Record(t *testing.T) {
	svc, store, queue := seededFeedbackService()

	c, err := svc.Record(context.Background(), "run-1", feedback.CreateRequest{
		CorrectedCategory: "billing",
		Rating:            2,
		Comment:           "  was about an invoice ",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected correction id")
	}
	if c.CorrectedCategory != "Billing" {
		t.Errorf("category not canonicalized: %q", c.CorrectedCategory)
	}
	if c.OriginalCategory != "Refund" || c.OriginalScore != 0.89 {
		t.Errorf("original answer not captured: %+v", c)
	}
	if c.Source != feedback.SourceAPI || c.Comment != "was about an invoice" {
		t.Errorf("unexpected correction %+v", c)
	}
	if len(store.corrections) != 1 {
		t.Fatalf("expected 1 stored correction, got %d", len(store.corrections))
	}

	msgs := bySubject[messagequeue.FeedbackRecordedPayload](queue, messagequeue.SubjectFeedbackRecorded)
	if len(msgs) != 1 || msgs[0].CorrectionID != c.ID || msgs[0].CorrectedCategory != "Billing" {
		t.Fatalf("unexpected feedback messages %+v", msgs)
	}
}

func TestFeedbackService_RecordErrors(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		req   feedback.CreateRequest
		want  error
	}{
		{"unknown run", "run-x", feedback.CreateRequest{Rating: 4}, domain.ErrNotFound},
		{"empty correction", "run-1", feedback.CreateRequest{}, domain.ErrValidation},
		{"rating out of range", "run-1", feedback.CreateRequest{Rating: 9}, domain.ErrValidation},
		{"unknown category", "run-1", feedback.CreateRequest{CorrectedCategory: "Gardening"}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, queue := seededFeedbackService()
			_, err := svc.Record(context.Background(), tt.runID, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(store.corrections) != 0 || len(queue.published) != 0 {
				t.Fatal("rejected feedback must not be stored or published")
			}
		})
	}
}

func TestFeedbackService_List(t *testing.T) {
	svc, _, _ := seededFeedbackService()
	ctx := context.Background()

	for _, r := range []int{5, 3} {
		if _, err := svc.Record(ctx, "run-1", feedback.CreateRequest{Rating: r}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.List(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Rating != 5 {
		t.Fatalf("unexpected corrections %+v", got)
	}

	if _, err := svc.List(ctx, "run-x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown run, got %v", err)
	}
}

func TestFeedbackService_Subscriber(t *testing.T) {
	svc, _, queue := seededFeedbackService()
	ctx := context.Background()

	stop, err := svc.StartSubscriber(ctx)
	if err != nil {
		t.Fatalf("StartSubscriber: %v", err)
	}

	if _, err := svc.Record(ctx, "run-1", feedback.CreateRequest{CorrectedCategory: "Billing"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	queue.mu.Lock()
	data := queue.published[0].data
	queue.mu.Unlock()

	if err := queue.deliver(ctx, messagequeue.SubjectFeedbackRecorded, data); err != nil {
		t.Fatalf("consume recorded event: %v", err)
	}
	if err := queue.deliver(ctx, messagequeue.SubjectFeedbackRecorded, []byte("{")); err == nil {
		t.Fatal("expected decode error for malformed event")
	}

	stop()
	if err := queue.deliver(ctx, messagequeue.SubjectFeedbackRecorded, data); err == nil {
		t.Fatal("expected no subscriber after stop")
	}
}
