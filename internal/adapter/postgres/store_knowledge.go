package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
)

// ListDocuments returns every knowledge document ordered by ID.
func (s *Store) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, categories, tags, updated_at FROM knowledge_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []knowledge.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return orEmpty(docs), rows.Err()
}

// UpsertDocument inserts or replaces a knowledge document.
func (s *Store) UpsertDocument(ctx context.Context, d *knowledge.Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO knowledge_documents (id, title, content, categories, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, content = EXCLUDED.content,
		     categories = EXCLUDED.categories, tags = EXCLUDED.tags, updated_at = now()
		 RETURNING updated_at`,
		d.ID, d.Title, d.Content, pgTextArray(d.Categories), pgTextArray(d.Tags),
	).Scan(&d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", d.ID, err)
	}
	return nil
}

func scanDocument(row scannable) (knowledge.Document, error) {
	var d knowledge.Document
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Categories, &d.Tags, &d.UpdatedAt); err != nil {
		return d, fmt.Errorf("scan document: %w", err)
	}
	return d, nil
}
