// Package capability defines the port interfaces for the pluggable analysis
// capabilities a triage run calls: classification, priority and sentiment
// detection, knowledge retrieval, response generation and adversarial review.
//
// Adapters may be slow; callers enforce deadlines through ctx. An adapter that
// cannot produce a numeric confidence leaves it nil rather than inventing one.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
)

// Classifier predicts the support category of a request.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// LabelDetector assigns a single label to a request. Priority and sentiment
// detection both use it.
type LabelDetector interface {
	Detect(ctx context.Context, text string) (Label, error)
}

// Retriever returns ranked knowledge matches for a request and category.
type Retriever interface {
	Retrieve(ctx context.Context, text, category string, limit int) ([]knowledge.Match, error)
}

// Responder drafts an answer grounded on the offered knowledge matches.
type Responder interface {
	Respond(ctx context.Context, in ResponseInput) (Response, error)
}

// Reviewer adversarially reviews a drafted answer.
type Reviewer interface {
	Review(ctx context.Context, in ReviewInput) (Review, error)
}

// Set bundles one implementation of every capability. Variants are chosen by
// configuration when the set is built, never by inspecting types at run time.
type Set struct {
	Name       string
	Classifier Classifier
	Priority   LabelDetector
	Sentiment  LabelDetector
	Retriever  Retriever
	Responder  Responder
	Reviewer   Reviewer
}

// Validate reports missing capabilities as a configuration error.
func (s *Set) Validate() error {
	var errs []error
	if s.Classifier == nil {
		errs = append(errs, errors.New("classifier is not configured"))
	}
	if s.Priority == nil {
		errs = append(errs, errors.New("priority detector is not configured"))
	}
	if s.Sentiment == nil {
		errs = append(errs, errors.New("sentiment detector is not configured"))
	}
	if s.Retriever == nil {
		errs = append(errs, errors.New("retriever is not configured"))
	}
	if s.Responder == nil {
		errs = append(errs, errors.New("responder is not configured"))
	}
	if s.Reviewer == nil {
		errs = append(errs, errors.New("reviewer is not configured"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: capability set %q: %w", domain.ErrConfiguration, s.Name, errors.Join(errs...))
	}
	return nil
}
