package heuristic

import (
	"context"
	"regexp"
	"strings"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

var (
	// 13-19 digit runs, optionally grouped, look like card numbers.
	cardNumber = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)

	unsafePhrases = []string{
		"guarantee", "guaranteed", "100%", "always refund", "no questions asked",
		"your password is", "send us your password", "social security",
		"legal advice", "you will win",
	}
)

// Reviewer flags risky promises and data leaks, and weak answers.
type Reviewer struct{}

// NewReviewer creates a Reviewer.
func NewReviewer() *Reviewer { return &Reviewer{} }

// Review implements capability.Reviewer.
func (r *Reviewer) Review(ctx context.Context, in capability.ReviewInput) (capability.Review, error) {
	if err := ctx.Err(); err != nil {
		return capability.Review{}, err
	}
	lower := strings.ToLower(in.ResponseText)

	for _, p := range unsafePhrases {
		if strings.Contains(lower, p) {
			return review(triage.VerdictUnsafe, 0.85, triage.RiskHigh, "reply contains a risky statement: "+p), nil
		}
	}
	if cardNumber.MatchString(in.ResponseText) {
		return review(triage.VerdictUnsafe, 0.9, triage.RiskHigh, "reply exposes what looks like a card number"), nil
	}
	if in.ResponseText == triage.FallbackResponseMsg {
		return review(triage.VerdictNeedsImprovement, 0.7, triage.RiskLow, "reply defers to a human agent"), nil
	}
	if len(strings.Fields(in.ResponseText)) < 8 {
		return review(triage.VerdictNeedsImprovement, 0.7, triage.RiskMedium, "reply is too short to be helpful"), nil
	}
	return review(triage.VerdictSafe, 0.8, triage.RiskLow, ""), nil
}

func review(v triage.VerdictLabel, conf float64, risk triage.RiskLevel, critique string) capability.Review {
	return capability.Review{Verdict: v, Confidence: &conf, RiskLevel: risk, Critique: critique}
}
