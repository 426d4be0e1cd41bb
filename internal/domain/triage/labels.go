package triage

import "strings"

// Label vocabularies shared by every capability variant.
var (
	Categories = []string{"Refund", "Shipping", "Billing", "Account", "Technical", "Complaint", "General"}
	Priorities = []string{"High", "Medium", "Low"}
	Sentiments = []string{"Positive", "Neutral", "Negative"}
)

// CanonicalLabel returns the vocabulary entry matching s case-insensitively.
func CanonicalLabel(vocab []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, v := range vocab {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}
