package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

func TestCachedClassifier_MemoizesByText(t *testing.T) {
	inner := &fakeClassifier{out: capability.Classification{Category: "Refund", Confidence: triage.Float(0.9)}}
	c := newMemCache()
	cc := NewCachedClassifier("m1", inner, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		got, err := cc.Classify(ctx, "refund please")
		if err != nil {
			t.Fatal(err)
		}
		if got.Category != "Refund" || got.Confidence == nil || *got.Confidence != 0.9 {
			t.Fatalf("unexpected classification %+v", got)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Fatalf("inner called %d times, want 1", n)
	}

	if _, err := cc.Classify(ctx, "different text"); err != nil {
		t.Fatal(err)
	}
	if n := inner.calls.Load(); n != 2 {
		t.Fatalf("inner called %d times, want 2", n)
	}
}

func TestCachedClassifier_ErrorsNotCached(t *testing.T) {
	inner := &fakeClassifier{err: errors.New("llm down")}
	c := newMemCache()
	cc := NewCachedClassifier("m1", inner, c, time.Minute)

	for range 2 {
		if _, err := cc.Classify(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls.Load() != 2 || c.sets != 0 {
		t.Fatalf("failed calls must not be cached (calls=%d sets=%d)", inner.calls.Load(), c.sets)
	}
}

func TestCachedClassifier_CacheFailureFallsThrough(t *testing.T) {
	inner := &fakeClassifier{out: capability.Classification{Category: "Billing"}}
	c := newMemCache()
	c.failGet = true
	cc := NewCachedClassifier("m1", inner, c, time.Minute)

	got, err := cc.Classify(context.Background(), "invoice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != "Billing" {
		t.Fatalf("category = %q", got.Category)
	}
}

func TestCachedDetector_SeparateKeySpaces(t *testing.T) {
	c := newMemCache()
	prio := NewCachedDetector("priority", "m1", &fakeDetector{out: capability.Label{Label: "High"}}, c, time.Minute)
	sent := NewCachedDetector("sentiment", "m1", &fakeDetector{out: capability.Label{Label: "Negative"}}, c, time.Minute)
	ctx := context.Background()

	p, err := prio.Detect(ctx, "same text")
	if err != nil {
		t.Fatal(err)
	}
	s, err := sent.Detect(ctx, "same text")
	if err != nil {
		t.Fatal(err)
	}
	if p.Label != "High" || s.Label != "Negative" {
		t.Fatalf("detectors collided: %q %q", p.Label, s.Label)
	}
	if len(c.data) != 2 {
		t.Fatalf("expected 2 cache entries, got %d", len(c.data))
	}
}

func TestCachedClassifier_InvalidOutputNotCached(t *testing.T) {
	inner := &fakeClassifier{out: capability.Classification{Category: "Refund", Confidence: triage.Float(1.5)}}
	c := newMemCache()
	cc := NewCachedClassifier("m1", inner, c, time.Minute)

	for range 2 {
		got, err := cc.Classify(context.Background(), "refund please")
		if err != nil {
			t.Fatal(err)
		}
		if got.Confidence == nil || *got.Confidence != 1.5 {
			t.Fatalf("output must pass through unchanged, got %+v", got)
		}
	}
	if inner.calls.Load() != 2 || c.sets != 0 {
		t.Fatalf("invalid output must not be cached (calls=%d sets=%d)", inner.calls.Load(), c.sets)
	}
}

func TestCachedClassifier_ModelSeparatesKeys(t *testing.T) {
	c := newMemCache()
	mini := &fakeClassifier{out: capability.Classification{Category: "Refund"}}
	large := &fakeClassifier{out: capability.Classification{Category: "Billing"}}
	ctx := context.Background()

	a, err := NewCachedClassifier("mini", mini, c, time.Minute).Classify(ctx, "same text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCachedClassifier("large", large, c, time.Minute).Classify(ctx, "same text")
	if err != nil {
		t.Fatal(err)
	}
	if a.Category != "Refund" || b.Category != "Billing" {
		t.Fatalf("models collided: %q %q", a.Category, b.Category)
	}
	if large.calls.Load() != 1 {
		t.Fatalf("second model must call its own adapter, calls=%d", large.calls.Load())
	}
}
