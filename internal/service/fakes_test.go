package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeClassifier struct {
	out      capability.Classification
	err      error
	delay    time.Duration
	panicMsg string
	calls    atomic.Int32
}

func (f *fakeClassifier) Classify(ctx context.Context, _ string) (capability.Classification, error) {
	f.calls.Add(1)
	if err := sleepCtx(ctx, f.delay); err != nil {
		return capability.Classification{}, err
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.out, f.err
}

type fakeDetector struct {
	out   capability.Label
	err   error
	delay time.Duration
}

func (f *fakeDetector) Detect(ctx context.Context, _ string) (capability.Label, error) {
	if err := sleepCtx(ctx, f.delay); err != nil {
		return capability.Label{}, err
	}
	return f.out, f.err
}

type fakeRetriever struct {
	mu          sync.Mutex
	matches     []knowledge.Match
	err         error
	gotCategory string
	gotLimit    int
	calls       int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, category string, limit int) ([]knowledge.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCategory = category
	f.gotLimit = limit
	return f.matches, f.err
}

type fakeResponder struct {
	mu    sync.Mutex
	out   capability.Response
	err   error
	got   capability.ResponseInput
	calls int
}

func (f *fakeResponder) Respond(_ context.Context, in capability.ResponseInput) (capability.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = in
	return f.out, f.err
}

type fakeReviewer struct {
	out   capability.Review
	err   error
	calls atomic.Int32
}

func (f *fakeReviewer) Review(_ context.Context, _ capability.ReviewInput) (capability.Review, error) {
	f.calls.Add(1)
	return f.out, f.err
}

// refundFakes wires a refund request answered from one
// policy document and judged safe.
type refundFakes struct {
	classifier *fakeClassifier
	priority   *fakeDetector
	sentiment  *fakeDetector
	retriever  *fakeRetriever
	responder  *fakeResponder
	reviewer   *fakeReviewer
}

func newRefundFakes() *refundFakes {
	return &refundFakes{
		classifier: &fakeClassifier{out: capability.Classification{Category: "Refund", Confidence: triage.Float(0.9)}},
		priority:   &fakeDetector{out: capability.Label{Label: "High", Confidence: triage.Float(0.7)}},
		sentiment:  &fakeDetector{out: capability.Label{Label: "Negative", Confidence: triage.Float(0.6)}},
		retriever: &fakeRetriever{matches: []knowledge.Match{
			{ID: "POL-REF-001", Title: "Refund policy", Content: "Returns within 30 days.", Score: 2.0},
		}},
		responder: &fakeResponder{out: capability.Response{
			Text:       "You may return within 30 days.",
			Confidence: triage.Float(0.8),
			CitedIDs:   []string{"POL-REF-001"},
		}},
		reviewer: &fakeReviewer{out: capability.Review{Verdict: "Safe", Confidence: triage.Float(0.95), RiskLevel: "low"}},
	}
}

func (f *refundFakes) set() capability.Set {
	return capability.Set{
		Name:       "fake",
		Classifier: f.classifier,
		Priority:   f.priority,
		Sentiment:  f.sentiment,
		Retriever:  f.retriever,
		Responder:  f.responder,
		Reviewer:   f.reviewer,
	}
}

func testPipelineOptions() PipelineOptions {
	timeouts := make(map[triage.Stage]time.Duration, len(triage.Stages))
	for _, s := range triage.Stages {
		timeouts[s] = time.Second
	}
	return PipelineOptions{RunTimeout: 5 * time.Second, StageTimeouts: timeouts, TopK: 3}
}

// recordingObserver collects stage progress events.
type recordingObserver struct {
	mu       sync.Mutex
	started  []triage.Stage
	finished []triage.StageResult
}

func (o *recordingObserver) StageStarted(_ context.Context, _ string, stage triage.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, stage)
}

func (o *recordingObserver) StageFinished(_ context.Context, _ string, res triage.StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, res)
}
