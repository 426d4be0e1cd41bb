package llmcap

import (
	"context"
	"fmt"

	"github.com/Strob0t/TicketForge/internal/domain/knowledge"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

// Classifier predicts the support category with a chat model.
type Classifier struct {
	client ChatClient
	model  string
}

// NewClassifier creates a Classifier.
func NewClassifier(client ChatClient, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

type classifyReply struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// Classify implements capability.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string) (capability.Classification, error) {
	var reply classifyReply
	data := map[string]any{"Text": text, "Labels": triage.Categories}
	if err := complete(ctx, c.client, c.model, "classify.tmpl", data, &reply); err != nil {
		return capability.Classification{}, err
	}
	category, ok := triage.CanonicalLabel(triage.Categories, reply.Category)
	if !ok {
		return capability.Classification{}, fmt.Errorf("%w: unknown category %q", capability.ErrMalformed, reply.Category)
	}
	return capability.Classification{Category: category, Confidence: reply.Confidence}, nil
}

// Detector assigns a priority or sentiment label with a chat model.
type Detector struct {
	client ChatClient
	model  string
	kind   string
	labels []string
}

// NewPriorityDetector creates a Detector for urgency.
func NewPriorityDetector(client ChatClient, model string) *Detector {
	return &Detector{client: client, model: model, kind: "priority (urgency)", labels: triage.Priorities}
}

// NewSentimentDetector creates a Detector for customer sentiment.
func NewSentimentDetector(client ChatClient, model string) *Detector {
	return &Detector{client: client, model: model, kind: "sentiment", labels: triage.Sentiments}
}

type labelReply struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// Detect implements capability.LabelDetector.
func (d *Detector) Detect(ctx context.Context, text string) (capability.Label, error) {
	var reply labelReply
	data := map[string]any{"Text": text, "Kind": d.kind, "Labels": d.labels}
	if err := complete(ctx, d.client, d.model, "label.tmpl", data, &reply); err != nil {
		return capability.Label{}, err
	}
	label, ok := triage.CanonicalLabel(d.labels, reply.Label)
	if !ok {
		return capability.Label{}, fmt.Errorf("%w: unknown %s label %q", capability.ErrMalformed, d.kind, reply.Label)
	}
	return capability.Label{Label: label, Confidence: reply.Confidence}, nil
}

// Responder drafts grounded replies with a chat model.
type Responder struct {
	client ChatClient
	model  string
}

// NewResponder creates a Responder.
func NewResponder(client ChatClient, model string) *Responder {
	return &Responder{client: client, model: model}
}

type respondReply struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	CitedIDs   []string `json:"cited_ids"`
}

type respondData struct {
	Category     string
	Text         string
	PriorContext string
	Matches      []knowledge.Match
}

// Respond implements capability.Responder.
func (r *Responder) Respond(ctx context.Context, in capability.ResponseInput) (capability.Response, error) {
	var reply respondReply
	data := respondData{
		Category:     in.Category,
		Text:         in.Text,
		PriorContext: in.PriorContext,
		Matches:      in.Context,
	}
	if err := complete(ctx, r.client, r.model, "respond.tmpl", data, &reply); err != nil {
		return capability.Response{}, err
	}
	if reply.CitedIDs == nil {
		reply.CitedIDs = []string{}
	}
	return capability.Response{Text: reply.Text, Confidence: reply.Confidence, CitedIDs: reply.CitedIDs}, nil
}

// Reviewer adversarially reviews drafted replies with a chat model.
type Reviewer struct {
	client ChatClient
	model  string
}

// NewReviewer creates a Reviewer.
func NewReviewer(client ChatClient, model string) *Reviewer {
	return &Reviewer{client: client, model: model}
}

type reviewReply struct {
	Verdict    string   `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	RiskLevel  string   `json:"risk_level"`
	Critique   string   `json:"critique"`
}

// Review implements capability.Reviewer.
func (r *Reviewer) Review(ctx context.Context, in capability.ReviewInput) (capability.Review, error) {
	var reply reviewReply
	data := map[string]any{"Original": in.OriginalText, "Response": in.ResponseText}
	if err := complete(ctx, r.client, r.model, "review.tmpl", data, &reply); err != nil {
		return capability.Review{}, err
	}
	verdict, err := triage.ParseVerdictLabel(reply.Verdict)
	if err != nil {
		return capability.Review{}, fmt.Errorf("%w: %w", capability.ErrMalformed, err)
	}
	return capability.Review{
		Verdict:    verdict,
		Confidence: reply.Confidence,
		RiskLevel:  triage.ParseRiskLevel(reply.RiskLevel),
		Critique:   reply.Critique,
	}, nil
}
