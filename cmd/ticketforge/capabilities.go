package main

import (
	"fmt"

	"github.com/Strob0t/TicketForge/internal/adapter/heuristic"
	"github.com/Strob0t/TicketForge/internal/adapter/llmcap"
	"github.com/Strob0t/TicketForge/internal/config"
	"github.com/Strob0t/TicketForge/internal/domain"
	"github.com/Strob0t/TicketForge/internal/port/cache"
	"github.com/Strob0t/TicketForge/internal/port/capability"
	"github.com/Strob0t/TicketForge/internal/service"
)

// buildCapabilities assembles the capability set named by p.Capabilities.
// Retrieval is always the given retriever. In llm mode the classifier and
// label detectors are memoized in c when c is non-nil.
func buildCapabilities(p config.Pipeline, llm llmcap.ChatClient, retriever capability.Retriever, c cache.Cache) (capability.Set, error) {
	var set capability.Set
	switch p.Capabilities {
	case "heuristic":
		set = heuristic.NewSet(retriever)
	case "llm":
		if llm == nil {
			return capability.Set{}, fmt.Errorf("%w: llm capabilities need a LiteLLM client", domain.ErrConfiguration)
		}
		set = capability.Set{
			Name:       "llm",
			Classifier: llmcap.NewClassifier(llm, p.ClassifierModel),
			Priority:   llmcap.NewPriorityDetector(llm, p.ClassifierModel),
			Sentiment:  llmcap.NewSentimentDetector(llm, p.ClassifierModel),
			Retriever:  retriever,
			Responder:  llmcap.NewResponder(llm, p.ResponderModel),
			Reviewer:   llmcap.NewReviewer(llm, p.ReviewerModel),
		}
		if c != nil {
			set.Classifier = service.NewCachedClassifier(p.ClassifierModel, set.Classifier, c, p.CacheTTL)
			set.Priority = service.NewCachedDetector("priority", p.ClassifierModel, set.Priority, c, p.CacheTTL)
			set.Sentiment = service.NewCachedDetector("sentiment", p.ClassifierModel, set.Sentiment, c, p.CacheTTL)
		}
	default:
		return capability.Set{}, fmt.Errorf("%w: unknown capability set %q", domain.ErrConfiguration, p.Capabilities)
	}
	if err := set.Validate(); err != nil {
		return capability.Set{}, err
	}
	return set, nil
}
