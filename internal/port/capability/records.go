package capability

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
)

// ErrMalformed marks adapter output that violates its record contract.
var ErrMalformed = errors.New("malformed capability output")

// Classification is the classifier's output.
type Classification struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Validate checks required fields and the confidence range.
func (c *Classification) Validate() error {
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrMalformed)
	}
	return checkConfidence(c.Confidence)
}

// Label is the output of a priority or sentiment detector.
type Label struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Validate checks required fields and the confidence range.
func (l *Label) Validate() error {
	if strings.TrimSpace(l.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrMalformed)
	}
	return checkConfidence(l.Confidence)
}

// ResponseInput is what the responder sees.
type ResponseInput struct {
	Category     string            `json:"category"`
	Text         string            `json:"text"`
	PriorContext string            `json:"prior_context,omitempty"`
	Context      []knowledge.Match `json:"context"`
}

// Response is the responder's output.
type Response struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	CitedIDs   []string `json:"cited_ids"`
}

// Validate checks required fields and the confidence range.
func (r *Response) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: response text is required", ErrMalformed)
	}
	return checkConfidence(r.Confidence)
}

// ReviewInput is what the adversarial reviewer sees.
type ReviewInput struct {
	OriginalText string `json:"original_text"`
	ResponseText string `json:"response_text"`
}

// Review is the adversarial reviewer's output.
type Review struct {
	Verdict    triage.VerdictLabel `json:"verdict"`
	Confidence *float64            `json:"confidence,omitempty"`
	RiskLevel  triage.RiskLevel    `json:"risk_level"`
	Critique   string              `json:"critique,omitempty"`
}

// Validate checks the verdict label and the confidence range. A missing or
// unrecognized risk level is defaulted to unknown rather than rejected.
func (r *Review) Validate() error {
	label, err := triage.ParseVerdictLabel(string(r.Verdict))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	r.Verdict = label
	r.RiskLevel = triage.ParseRiskLevel(string(r.RiskLevel))
	return checkConfidence(r.Confidence)
}

// ToVerdict converts the review into the domain verdict.
func (r Review) ToVerdict() triage.Verdict {
	return triage.Verdict{
		Label:      r.Verdict,
		Confidence: r.Confidence,
		RiskLevel:  r.RiskLevel,
		Critique:   r.Critique,
	}
}

func checkConfidence(c *float64) error {
	if c == nil {
		return nil
	}
	if math.IsNaN(*c) || *c < 0 || *c > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformed, *c)
	}
	return nil
}
