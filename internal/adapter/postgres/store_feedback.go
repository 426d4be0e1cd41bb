package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TicketForge/internal/domain/feedback"
)

// CreateCorrection inserts a correction and fills its ID and CreatedAt.
func (s *Store) CreateCorrection(ctx context.Context, c *feedback.Correction) error {
	const q = `
		INSERT INTO feedback_corrections (run_id, source, corrected_category, corrected_response, rating, comment, original_category, original_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, q,
		c.RunID, string(c.Source), c.CorrectedCategory, c.CorrectedResponse,
		c.Rating, c.Comment, c.OriginalCategory, c.OriginalScore,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create correction for run %s: %w", c.RunID, err)
	}
	return nil
}

// ListCorrections returns all corrections for a run, oldest first.
func (s *Store) ListCorrections(ctx context.Context, runID string) ([]feedback.Correction, error) {
	const q = `
		SELECT id, run_id, source, corrected_category, corrected_response, rating, comment, original_category, original_confidence, created_at
		FROM feedback_corrections
		WHERE run_id = $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("list corrections for run %s: %w", runID, err)
	}
	defer rows.Close()

	var result []feedback.Correction
	for rows.Next() {
		var c feedback.Correction
		if err := rows.Scan(
			&c.ID, &c.RunID, &c.Source, &c.CorrectedCategory, &c.CorrectedResponse,
			&c.Rating, &c.Comment, &c.OriginalCategory, &c.OriginalScore, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		result = append(result, c)
	}
	return orEmpty(result), rows.Err()
}
