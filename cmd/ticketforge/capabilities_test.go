package main

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/TicketForge/internal/adapter/corpus"
	"github.com/Strob0t/TicketForge/internal/adapter/litellm"
	"github.com/Strob0t/TicketForge/internal/adapter/ristretto"
	"github.com/Strob0t/TicketForge/internal/config"
	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/service"
)

type offlineChat struct{}

func (offlineChat) ChatCompletion(context.Context, litellm.ChatCompletionRequest) (*litellm.ChatCompletionResponse, error) {
	return nil, errors.New("offline")
}

func TestBuildCapabilities_Heuristic(t *testing.T) {
	p := config.Defaults().Pipeline
	set, err := buildCapabilities(p, nil, corpus.New(nil), nil)
	if err != nil {
		t.Fatalf("buildCapabilities: %v", err)
	}
	if set.Name != "heuristic" {
		t.Fatalf("expected heuristic set, got %q", set.Name)
	}
}

func TestBuildCapabilities_LLMCached(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	p := config.Defaults().Pipeline
	p.Capabilities = "llm"
	set, err := buildCapabilities(p, offlineChat{}, corpus.New(nil), c)
	if err != nil {
		t.Fatalf("buildCapabilities: %v", err)
	}
	if _, ok := set.Classifier.(*service.CachedClassifier); !ok {
		t.Errorf("classifier is %T, want *service.CachedClassifier", set.Classifier)
	}
	if _, ok := set.Priority.(*service.CachedDetector); !ok {
		t.Errorf("priority is %T, want *service.CachedDetector", set.Priority)
	}
	if _, ok := set.Sentiment.(*service.CachedDetector); !ok {
		t.Errorf("sentiment is %T, want *service.CachedDetector", set.Sentiment)
	}
}

func TestBuildCapabilities_Errors(t *testing.T) {
	p := config.Defaults().Pipeline

	p.Capabilities = "llm"
	if _, err := buildCapabilities(p, nil, corpus.New(nil), nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("llm without client: expected ErrConfiguration, got %v", err)
	}

	p.Capabilities = "oracle"
	if _, err := buildCapabilities(p, nil, corpus.New(nil), nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("unknown set: expected ErrConfiguration, got %v", err)
	}

	p.Capabilities = "heuristic"
	if _, err := buildCapabilities(p, nil, nil, nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("missing retriever: expected ErrConfiguration, got %v", err)
	}
}

func TestKnowledgeLoader(t *testing.T) {
	if _, ok := knowledgeLoader(config.Knowledge{Source: "file", Path: "kb.yaml"}, nil).(corpus.FileLoader); !ok {
		t.Error("file source should use FileLoader")
	}
	if _, ok := knowledgeLoader(config.Knowledge{Source: "postgres"}, nil).(corpus.StoreLoader); !ok {
		t.Error("postgres source should use StoreLoader")
	}
}
