// Package corpus serves knowledge retrieval from an in-memory snapshot that
// is replaced atomically on reload. Runs in flight keep reading the snapshot
// they started with.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
)

// Loader produces the documents for a new snapshot.
type Loader interface {
	Load(ctx context.Context) ([]knowledge.Document, error)
}

// Corpus implements capability.Retriever over the current snapshot.
type Corpus struct {
	current atomic.Pointer[knowledge.Snapshot]
}

// New creates a Corpus serving snap. A nil snap serves an empty corpus.
func New(snap *knowledge.Snapshot) *Corpus {
	if snap == nil {
		snap, _ = knowledge.NewSnapshot(nil)
	}
	c := &Corpus{}
	c.current.Store(snap)
	return c
}

// Snapshot returns the snapshot currently served.
func (c *Corpus) Snapshot() *knowledge.Snapshot {
	return c.current.Load()
}

// Swap installs snap and returns the previous snapshot.
func (c *Corpus) Swap(snap *knowledge.Snapshot) *knowledge.Snapshot {
	return c.current.Swap(snap)
}

// Reload builds a snapshot from l and swaps it in. On error the current
// snapshot stays in place.
func (c *Corpus) Reload(ctx context.Context, l Loader) (*knowledge.Snapshot, error) {
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	snap, err := knowledge.NewSnapshot(docs)
	if err != nil {
		return nil, fmt.Errorf("index corpus: %w", err)
	}
	prev := c.Swap(snap)
	slog.Info("knowledge corpus reloaded", "documents", snap.Len(), "previous", prev.Len())
	return snap, nil
}

// Retrieve implements capability.Retriever.
func (c *Corpus) Retrieve(ctx context.Context, text, category string, limit int) ([]knowledge.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Snapshot().Search(text, category, limit), nil
}
