package corpus

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
)

// FileLoader reads documents from a YAML file of the form
//
//	documents:
//	  - id: POL-REF-001
//	    title: Refund policy
//	    content: ...
//	    categories: [Refund]
type FileLoader struct {
	Path string
}

type corpusFile struct {
	Documents []knowledge.Document `yaml:"documents"`
}

// Load implements Loader.
func (l FileLoader) Load(_ context.Context) ([]knowledge.Document, error) {
	data, err := os.ReadFile(l.Path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Path, err)
	}
	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.Path, err)
	}
	return f.Documents, nil
}

// DocumentLister is the store method StoreLoader needs.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]knowledge.Document, error)
}

// StoreLoader reads documents from the database.
type StoreLoader struct {
	Store DocumentLister
}

// Load implements Loader.
func (l StoreLoader) Load(ctx context.Context) ([]knowledge.Document, error) {
	return l.Store.ListDocuments(ctx)
}
