// Package triage defines the domain model of one triage pipeline run: the
// request, per-stage results, the adversarial verdict, the execution trace,
// and the confidence aggregation that turns them into a single score.
package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
)

// Stage names one node of the fixed pipeline graph.
type Stage string

const (
	StageClassifier  Stage = "classifier"
	StagePriority    Stage = "priority"
	StageSentiment   Stage = "sentiment"
	StageRetriever   Stage = "retriever"
	StageResponder   Stage = "responder"
	StageAdversarial Stage = "adversarial"
)

// Stages lists every stage in scheduled order. Trace entries follow this order.
var Stages = []Stage{
	StageClassifier,
	StagePriority,
	StageSentiment,
	StageRetriever,
	StageResponder,
	StageAdversarial,
}

// StageStatus is the outcome of one stage execution.
type StageStatus string

const (
	StatusSuccess  StageStatus = "success"
	StatusFailed   StageStatus = "failed"
	StatusTimedOut StageStatus = "timed_out"
	StatusSkipped  StageStatus = "skipped"
)

// Degraded reports whether the stage fell back to its default output.
func (s StageStatus) Degraded() bool {
	return s != StatusSuccess
}

// Skip reasons recorded on StageResult.Error.
const (
	ReasonRunDeadline   = "run deadline exceeded"
	ReasonRunCancelled  = "run cancelled"
	ReasonNoResponse    = "no generated response to review"
	FallbackCategory    = "Uncategorized"
	FallbackPriority    = "Medium"
	FallbackSentiment   = "Neutral"
	FallbackResponseMsg = "We could not generate an answer automatically. A support agent will follow up shortly."
)

// Request is the immutable input of one pipeline run.
type Request struct {
	Body         string `json:"text"`
	PriorContext string `json:"context,omitempty"`
}

// Validate checks that a Request is well-formed.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	return nil
}

// StageResult records the outcome of one stage. Output is capability-specific
// and opaque to the coordinator. Confidence is nil only for skipped stages that
// never produced a value; the stage runner always fills it otherwise.
type StageResult struct {
	Stage      Stage         `json:"stage"`
	Status     StageStatus   `json:"status"`
	Output     any           `json:"output,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// ConfidenceOr returns the recorded confidence or def when absent.
func (r *StageResult) ConfidenceOr(def float64) float64 {
	if r == nil || r.Confidence == nil {
		return def
	}
	return *r.Confidence
}

// Result is the final, immutable output of one pipeline run.
type Result struct {
	RunID            string        `json:"run_id"`
	Category         string        `json:"category"`
	Priority         string        `json:"priority"`
	Sentiment        string        `json:"sentiment"`
	ResponseText     string        `json:"response_text"`
	Sources          []string      `json:"sources"`
	SystemConfidence float64       `json:"system_confidence"`
	Confidence       Breakdown     `json:"confidence"`
	Verdict          Verdict       `json:"verdict"`
	Trace            Trace         `json:"trace"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration_ns"`
}

// Summary is a compact view of a stored run used for listings.
type Summary struct {
	RunID            string       `json:"run_id"`
	Category         string       `json:"category"`
	Priority         string       `json:"priority"`
	SystemConfidence float64      `json:"system_confidence"`
	Verdict          VerdictLabel `json:"verdict"`
	Degraded         int          `json:"degraded_stages"`
	StartedAt        time.Time    `json:"started_at"`
}

// Summarize builds a Summary from a Result.
func (r *Result) Summarize() Summary {
	degraded := 0
	for i := range r.Trace.Entries {
		if r.Trace.Entries[i].Status.Degraded() {
			degraded++
		}
	}
	return Summary{
		RunID:            r.RunID,
		Category:         r.Category,
		Priority:         r.Priority,
		SystemConfidence: r.SystemConfidence,
		Verdict:          r.Verdict.Label,
		Degraded:         degraded,
		StartedAt:        r.StartedAt,
	}
}

// KnowledgeMatch is a ranked retrieval candidate offered to the responder.
type KnowledgeMatch = knowledge.Match

// Float returns a pointer to v, for optional confidences.
func Float(v float64) *float64 { return &v }
