// Package knowledge defines policy documents, immutable corpus snapshots and
// the deterministic retrieval scoring used to ground generated responses.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/TicketForge/internal/domain"
)

// Document is one policy or help article in the knowledge corpus.
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Content    string    `json:"content" yaml:"content"`
	Categories []string  `json:"categories,omitempty" yaml:"categories,omitempty"`
	Tags       []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks that a Document is well-formed.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: document %s: title is required", domain.ErrValidation, d.ID)
	}
	return nil
}

// Match is a ranked retrieval candidate. Score is non-negative; higher is
// more relevant.
type Match struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ErrDuplicateID is returned when a snapshot would contain two documents
// with the same ID.
var ErrDuplicateID = errors.New("duplicate document id")
