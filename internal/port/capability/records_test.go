package capability_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

func TestClassificationValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       capability.Classification
		wantErr bool
	}{
		{"ok", capability.Classification{Category: "Refund", Confidence: triage.Float(0.9)}, false},
		{"absent confidence", capability.Classification{Category: "Refund"}, false},
		{"empty category", capability.Classification{Category: " "}, true},
		{"confidence above one", capability.Classification{Category: "Refund", Confidence: triage.Float(1.2)}, true},
		{"negative confidence", capability.Classification{Category: "Refund", Confidence: triage.Float(-0.1)}, true},
		{"nan confidence", capability.Classification{Category: "Refund", Confidence: triage.Float(math.NaN())}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, capability.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestLabelAndResponseValidate(t *testing.T) {
	if err := (&capability.Label{}).Validate(); err == nil {
		t.Error("expected error for empty label")
	}
	if err := (&capability.Label{Label: "High"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&capability.Response{}).Validate(); err == nil {
		t.Error("expected error for empty response text")
	}
	if err := (&capability.Response{Text: "ok", CitedIDs: nil}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReviewValidate(t *testing.T) {
	r := capability.Review{Verdict: "Unsafe", RiskLevel: "catastrophic", Confidence: triage.Float(0.9)}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.RiskLevel != triage.RiskUnknown {
		t.Errorf("expected unknown risk level default, got %q", r.RiskLevel)
	}

	bad := capability.Review{Verdict: "probably fine"}
	if err := bad.Validate(); !errors.Is(err, capability.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}

	v := capability.Review{Verdict: triage.VerdictSafe, RiskLevel: triage.RiskLow, Critique: "fine"}.ToVerdict()
	if v.Label != triage.VerdictSafe || v.RiskLevel != triage.RiskLow || v.Critique != "fine" {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestSetValidate(t *testing.T) {
	s := capability.Set{Name: "empty"}
	err := s.Validate()
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
