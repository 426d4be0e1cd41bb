package heuristic

import (
	"context"

	"github.com/Strob0t/TicketForge/internal/port/capability"
)

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Refund", []string{"refund", "refunds", "return", "returns", "money back", "reimburse", "reimbursement", "cancel order"}},
	{"Shipping", []string{"shipping", "shipment", "delivery", "delivered", "package", "parcel", "tracking", "courier", "arrive", "arrived"}},
	{"Billing", []string{"billing", "bill", "invoice", "charged", "charge", "payment", "subscription", "credit card", "overcharged"}},
	{"Account", []string{"account", "login", "log in", "password", "username", "email address", "locked", "sign in", "2fa"}},
	{"Technical", []string{"error", "bug", "crash", "crashes", "broken", "app", "website", "loading", "not working", "outage"}},
	{"Complaint", []string{"complaint", "unacceptable", "terrible", "rude", "manager", "disappointed", "worst", "escalate"}},
}

// Classifier assigns the category with the most keyword hits. Ties go to
// the category listed first.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify implements capability.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string) (capability.Classification, error) {
	if err := ctx.Err(); err != nil {
		return capability.Classification{}, err
	}
	tokens, phrase := normalize(text)

	best, bestHits, total := "General", 0, 0
	for _, ck := range categoryKeywords {
		hits := countHits(tokens, phrase, ck.keywords)
		total += hits
		if hits > bestHits {
			best, bestHits = ck.category, hits
		}
	}

	conf := 0.3
	if bestHits > 0 {
		// Share of the hits that went to the winner, lifted by volume.
		share := float64(bestHits) / float64(total)
		conf = clamp(0.35+0.45*share+0.05*float64(bestHits), 0, 0.95)
	}
	return capability.Classification{Category: best, Confidence: &conf}, nil
}
