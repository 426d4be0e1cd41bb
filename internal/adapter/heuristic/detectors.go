package heuristic

import (
	"context"
	"strings"

	"github.com/Strob0t/TicketForge/internal/port/capability"
)

var (
	highPriorityKeywords = []string{
		"urgent", "urgently", "asap", "immediately", "emergency", "fraud", "stolen",
		"lawyer", "legal", "charged twice", "double charged", "outage", "locked out",
		"cannot access", "can't access", "right now",
	}
	lowPriorityKeywords = []string{
		"question", "wondering", "curious", "suggestion", "feedback", "whenever",
		"no rush", "just asking", "fyi",
	}

	positiveKeywords = []string{
		"thanks", "thank", "great", "love", "awesome", "appreciate", "happy",
		"excellent", "helpful", "perfect",
	}
	negativeKeywords = []string{
		"angry", "upset", "terrible", "awful", "worst", "hate", "unacceptable",
		"disappointed", "frustrated", "ridiculous", "useless", "never again",
		"broken", "scam",
	}
)

// PriorityDetector grades urgency from keyword hits.
type PriorityDetector struct{}

// NewPriorityDetector creates a PriorityDetector.
func NewPriorityDetector() *PriorityDetector { return &PriorityDetector{} }

// Detect implements capability.LabelDetector.
func (d *PriorityDetector) Detect(ctx context.Context, text string) (capability.Label, error) {
	if err := ctx.Err(); err != nil {
		return capability.Label{}, err
	}
	tokens, phrase := normalize(text)
	high := countHits(tokens, phrase, highPriorityKeywords)
	low := countHits(tokens, phrase, lowPriorityKeywords)
	// Shouting counts as urgency.
	if strings.Count(text, "!") >= 2 {
		high++
	}

	label, conf := "Medium", 0.5
	switch {
	case high > low:
		label, conf = "High", clamp(0.6+0.1*float64(high-low), 0, 0.95)
	case low > high:
		label, conf = "Low", clamp(0.55+0.1*float64(low-high), 0, 0.9)
	}
	return capability.Label{Label: label, Confidence: &conf}, nil
}

// SentimentDetector scores positive against negative vocabulary.
type SentimentDetector struct{}

// NewSentimentDetector creates a SentimentDetector.
func NewSentimentDetector() *SentimentDetector { return &SentimentDetector{} }

// Detect implements capability.LabelDetector.
func (d *SentimentDetector) Detect(ctx context.Context, text string) (capability.Label, error) {
	if err := ctx.Err(); err != nil {
		return capability.Label{}, err
	}
	tokens, phrase := normalize(text)
	pos := countHits(tokens, phrase, positiveKeywords)
	neg := countHits(tokens, phrase, negativeKeywords)

	label, conf := "Neutral", 0.5
	switch net := pos - neg; {
	case net > 0:
		label, conf = "Positive", clamp(0.55+0.1*float64(net), 0, 0.95)
	case net < 0:
		label, conf = "Negative", clamp(0.55+0.1*float64(-net), 0, 0.95)
	}
	return capability.Label{Label: label, Confidence: &conf}, nil
}
