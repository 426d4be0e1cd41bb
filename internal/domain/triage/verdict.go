package triage

import (
	"fmt"
	"strings"
)

// VerdictLabel is the adversarial reviewer's safety judgment.
type VerdictLabel string

const (
	VerdictSafe             VerdictLabel = "safe"
	VerdictUnsafe           VerdictLabel = "unsafe"
	VerdictNeedsImprovement VerdictLabel = "needs_improvement"
	VerdictUnverified       VerdictLabel = "unverified"
)

// RiskLevel grades the reviewer's perceived risk of a response.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// Verdict is the outcome of the adversarial stage.
type Verdict struct {
	Label      VerdictLabel `json:"label"`
	Confidence *float64     `json:"confidence,omitempty"`
	RiskLevel  RiskLevel    `json:"risk_level"`
	Critique   string       `json:"critique,omitempty"`
}

// UnverifiedVerdict is the fallback used when review fails, times out or is skipped.
func UnverifiedVerdict() Verdict {
	return Verdict{
		Label:      VerdictUnverified,
		Confidence: Float(AdversarialFallbackConfidence),
		RiskLevel:  RiskUnknown,
	}
}

// ParseVerdictLabel maps reviewer output onto a VerdictLabel. Matching is
// case-insensitive and accepts spaces or hyphens for needs_improvement.
// Unknown labels are an error: a verdict cannot be guessed.
func ParseVerdictLabel(s string) (VerdictLabel, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch VerdictLabel(norm) {
	case VerdictSafe, VerdictUnsafe, VerdictNeedsImprovement, VerdictUnverified:
		return VerdictLabel(norm), nil
	}
	return "", fmt.Errorf("unknown verdict label %q", s)
}

// ParseRiskLevel maps reviewer output onto a RiskLevel. Unknown or empty
// values default to RiskUnknown.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow
	case RiskMedium:
		return RiskMedium
	case RiskHigh:
		return RiskHigh
	}
	return RiskUnknown
}
