// Package heuristic implements every triage capability except retrieval with
// deterministic keyword rules. It needs no network access and backs the
// offline `ticketforge run` command and the default server mode.
package heuristic

import (
	"strings"
	"unicode"

	"github.com/Strob0t/TicketForge/internal/port/capability"
)

// words lowercases text and splits it on anything that is not a letter,
// digit or apostrophe.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// countHits counts keyword occurrences. Multi-word keywords match on the
// normalized phrase, single words on whole tokens.
func countHits(tokens []string, phrase string, keywords []string) int {
	set := make(map[string]int, len(tokens))
	for _, t := range tokens {
		set[t]++
	}
	hits := 0
	for _, k := range keywords {
		if strings.Contains(k, " ") {
			if strings.Contains(phrase, " "+k+" ") {
				hits++
			}
			continue
		}
		hits += set[k]
	}
	return hits
}

func normalize(text string) ([]string, string) {
	tokens := words(text)
	return tokens, " " + strings.Join(tokens, " ") + " "
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// NewSet returns the offline capability set. Retrieval is always supplied by
// the caller.
func NewSet(retriever capability.Retriever) capability.Set {
	return capability.Set{
		Name:       "heuristic",
		Classifier: NewClassifier(),
		Priority:   NewPriorityDetector(),
		Sentiment:  NewSentimentDetector(),
		Retriever:  retriever,
		Responder:  NewResponder(),
		Reviewer:   NewReviewer(),
	}
}
