// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/TicketForge/internal/domain/feedback"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
)

// Store is the port interface for database operations.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, res *triage.Result) error
	GetRun(ctx context.Context, id string) (*triage.Result, error)
	ListRuns(ctx context.Context, limit int) ([]triage.Summary, error)

	// Feedback
	CreateCorrection(ctx context.Context, c *feedback.Correction) error
	ListCorrections(ctx context.Context, runID string) ([]feedback.Correction, error)

	// Knowledge
	ListDocuments(ctx context.Context) ([]knowledge.Document, error)
	UpsertDocument(ctx context.Context, d *knowledge.Document) error
}
