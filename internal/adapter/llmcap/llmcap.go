// Package llmcap implements the triage capabilities on top of LiteLLM chat
// completions. Every call asks for a single JSON object and validates it
// against the label vocabularies before it reaches the coordinator.
package llmcap

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Strob0t/TicketForge/internal/adapter/litellm"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(promptFS, "prompts/*.tmpl"))

const systemPrompt = "You are a customer support triage assistant. Always reply with a single JSON object and nothing else."

// ChatClient is the subset of the LiteLLM client the capabilities need.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req litellm.ChatCompletionRequest) (*litellm.ChatCompletionResponse, error)
}

// complete renders the named prompt, calls the model and decodes the JSON
// reply into out. Undecodable replies are reported as malformed output.
func complete(ctx context.Context, client ChatClient, model, tmpl string, data, out any) error {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}

	resp, err := client.ChatCompletion(ctx, litellm.ChatCompletionRequest{
		Model: model,
		Messages: []litellm.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buf.String()},
		},
		Temperature:    0,
		MaxTokens:      1024,
		ResponseFormat: litellm.JSONObject,
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), out); err != nil {
		return fmt.Errorf("%w: decode %s reply: %w", capability.ErrMalformed, tmpl, err)
	}
	return nil
}

// extractJSON strips markdown fences or surrounding prose from a model reply.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
