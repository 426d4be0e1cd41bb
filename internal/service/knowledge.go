package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/TicketForge/internal/adapter/corpus"
	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/port/database"
)

// KnowledgeStatus describes the snapshot currently served to runs.
type KnowledgeStatus struct {
	Documents int       `json:"documents"`
	BuiltAt   time.Time `json:"built_at"`
}

// KnowledgeService manages the knowledge corpus the retriever searches.
type KnowledgeService struct {
	corpus *corpus.Corpus
	loader corpus.Loader
	store  database.Store
}

// NewKnowledgeService creates a KnowledgeService. store may be nil when
// documents are never imported into the database.
func NewKnowledgeService(c *corpus.Corpus, loader corpus.Loader, store database.Store) *KnowledgeService {
	return &KnowledgeService{corpus: c, loader: loader, store: store}
}

// List returns the documents of the current snapshot.
func (s *KnowledgeService) List(_ context.Context) []knowledge.Document {
	return s.corpus.Snapshot().Documents()
}

// Status returns the size and build time of the current snapshot.
func (s *KnowledgeService) Status() KnowledgeStatus {
	snap := s.corpus.Snapshot()
	return KnowledgeStatus{Documents: snap.Len(), BuiltAt: snap.BuiltAt()}
}

// Reload rebuilds the snapshot from the configured source. Runs in flight keep
// the snapshot they started with; on failure the previous snapshot stays.
func (s *KnowledgeService) Reload(ctx context.Context) (KnowledgeStatus, error) {
	snap, err := s.corpus.Reload(ctx, s.loader)
	if err != nil {
		return s.Status(), fmt.Errorf("reload knowledge: %w", err)
	}
	slog.Info("knowledge corpus reloaded", "documents", snap.Len())
	return KnowledgeStatus{Documents: snap.Len(), BuiltAt: snap.BuiltAt()}, nil
}

// Import upserts documents into the database. It validates every document
// before writing any.
func (s *KnowledgeService) Import(ctx context.Context, docs []knowledge.Document) (int, error) {
	if s.store == nil {
		return 0, errors.New("import knowledge: no database configured")
	}
	if _, err := knowledge.NewSnapshot(docs); err != nil {
		return 0, fmt.Errorf("import knowledge: %w", err)
	}
	for i := range docs {
		if err := s.store.UpsertDocument(ctx, &docs[i]); err != nil {
			return i, fmt.Errorf("import knowledge: %w", err)
		}
	}
	return len(docs), nil
}
