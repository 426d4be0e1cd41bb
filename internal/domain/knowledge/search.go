package knowledge

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Scoring weights for Search.
const (
	TitleWeight    = 2.0
	ContentWeight  = 1.0
	CategoryWeight = 1.5
)

// DefaultTopK is the default number of matches offered to the responder.
const DefaultTopK = 3

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "can": {}, "do": {}, "for": {}, "from": {}, "have": {}, "how": {}, "i": {},
	"if": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "no": {}, "not": {},
	"of": {}, "on": {}, "or": {}, "so": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "we": {}, "what": {}, "when": {}, "why": {}, "with": {}, "you": {}, "your": {},
}

// Search ranks the snapshot against query and category. A document scores
// TitleWeight per distinct query term found in its title, ContentWeight per
// term found in its content or tags, and CategoryWeight when it is filed under
// category. Zero-score documents are dropped. The result is ordered by score
// descending then ID ascending and holds at most limit entries (limit <= 0
// means DefaultTopK). The same snapshot and input always yield the same result.
func (s *Snapshot) Search(query, category string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultTopK
	}
	terms := tokenSet(query)
	cat := normalizeCategory(category)

	matches := make([]Match, 0, limit)
	for i := range s.docs {
		d := &s.docs[i]
		score := 0.0
		for term := range terms {
			if _, ok := d.title[term]; ok {
				score += TitleWeight
			}
			if _, ok := d.content[term]; ok {
				score += ContentWeight
			}
		}
		if cat != "" {
			if _, ok := d.categories[cat]; ok {
				score += CategoryWeight
			}
		}
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			ID:      d.doc.ID,
			Title:   d.doc.Title,
			Content: d.doc.Content,
			Score:   score,
		})
	}

	SortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// SortMatches orders matches by score descending, ties broken by ascending ID.
func SortMatches(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].ID < ms[j].ID
	})
}

// ValidScore reports whether a match score is usable (finite and non-negative).
func ValidScore(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0) && score >= 0
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
