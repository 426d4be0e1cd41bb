package heuristic

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

// Responder answers from the best knowledge match using a fixed template.
type Responder struct{}

// NewResponder creates a Responder.
func NewResponder() *Responder { return &Responder{} }

// Respond implements capability.Responder.
func (r *Responder) Respond(ctx context.Context, in capability.ResponseInput) (capability.Response, error) {
	if err := ctx.Err(); err != nil {
		return capability.Response{}, err
	}
	if len(in.Context) == 0 {
		conf := 0.3
		return capability.Response{Text: triage.FallbackResponseMsg, Confidence: &conf, CitedIDs: []string{}}, nil
	}

	top := in.Context[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for contacting us about your %s request. ", strings.ToLower(in.Category))
	fmt.Fprintf(&b, "Per our %q policy: %s", top.Title, firstSentence(top.Content))
	cited := []string{top.ID}

	// A runner-up close to the top match is worth mentioning too.
	if len(in.Context) > 1 && in.Context[1].Score >= top.Score*0.75 {
		next := in.Context[1]
		fmt.Fprintf(&b, " See also %q: %s", next.Title, firstSentence(next.Content))
		cited = append(cited, next.ID)
	}

	conf := clamp(0.5+0.1*top.Score, 0, 0.85)
	return capability.Response{Text: b.String(), Confidence: &conf, CitedIDs: cited}, nil
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}
