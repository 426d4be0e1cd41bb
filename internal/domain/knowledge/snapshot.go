package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable, pre-tokenized view of the corpus. It is safe for
// concurrent reads; updates replace the whole snapshot.
type Snapshot struct {
	docs    []indexedDoc
	builtAt time.Time
}

type indexedDoc struct {
	doc        Document
	title      map[string]struct{}
	content    map[string]struct{}
	categories map[string]struct{}
}

// NewSnapshot validates and indexes docs. The input slice is copied.
func NewSnapshot(docs []Document) (*Snapshot, error) {
	seen := make(map[string]struct{}, len(docs))
	indexed := make([]indexedDoc, 0, len(docs))
	for i := range docs {
		d := docs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}

		cats := make(map[string]struct{}, len(d.Categories))
		for _, c := range d.Categories {
			cats[normalizeCategory(c)] = struct{}{}
		}
		indexed = append(indexed, indexedDoc{
			doc:        d,
			title:      tokenSet(d.Title),
			content:    tokenSet(d.Content + " " + strings.Join(d.Tags, " ")),
			categories: cats,
		})
	}
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].doc.ID < indexed[j].doc.ID })
	return &Snapshot{docs: indexed, builtAt: time.Now()}, nil
}

// Len returns the number of documents in the snapshot.
func (s *Snapshot) Len() int { return len(s.docs) }

// BuiltAt returns when the snapshot was indexed.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Documents returns a copy of the documents ordered by ID.
func (s *Snapshot) Documents() []Document {
	out := make([]Document, len(s.docs))
	for i := range s.docs {
		out[i] = s.docs[i].doc
	}
	return out
}
