// Package feedback provides the domain model for user corrections submitted
// against a finished triage run. Corrections are correlated to the run that
// produced the answer through its run ID.
package feedback

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain"
)

// Rating bounds for a correction.
const (
	MinRating = 1
	MaxRating = 5
)

// Source identifies where a correction was collected.
type Source string

const (
	SourceWeb   Source = "web"
	SourceAgent Source = "agent"
	SourceAPI   Source = "api"
)

// Correction records a user's or agent's correction of a run's output.
type Correction struct {
	ID                string    `json:"id"`
	RunID             string    `json:"run_id"`
	Source            Source    `json:"source"`
	CorrectedCategory string    `json:"corrected_category,omitempty"`
	CorrectedResponse string    `json:"corrected_response,omitempty"`
	Rating            int       `json:"rating,omitempty"`
	Comment           string    `json:"comment,omitempty"`
	OriginalCategory  string    `json:"original_category"`
	OriginalScore     float64   `json:"original_confidence"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateRequest holds the input for recording a correction.
type CreateRequest struct {
	Source            Source `json:"source"`
	CorrectedCategory string `json:"corrected_category,omitempty"`
	CorrectedResponse string `json:"corrected_response,omitempty"`
	Rating            int    `json:"rating,omitempty"`
	Comment           string `json:"comment,omitempty"`
}

// Validate checks that a CreateRequest carries at least one signal.
func (r *CreateRequest) Validate() error {
	if r.Source == "" {
		r.Source = SourceAPI
	}
	switch r.Source {
	case SourceWeb, SourceAgent, SourceAPI:
	default:
		return fmt.Errorf("%w: invalid source %q", domain.ErrValidation, r.Source)
	}
	if r.Rating != 0 && (r.Rating < MinRating || r.Rating > MaxRating) {
		return fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, MinRating, MaxRating)
	}
	if strings.TrimSpace(r.CorrectedCategory) == "" &&
		strings.TrimSpace(r.CorrectedResponse) == "" &&
		r.Rating == 0 &&
		strings.TrimSpace(r.Comment) == "" {
		return fmt.Errorf("%w: correction must include a category, response, rating or comment", domain.ErrValidation)
	}
	return nil
}
