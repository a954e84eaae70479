package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/axonworks/axon/internal/config"
)

// defaultAnthropicMaxTokens applies when the agent config leaves
// max_tokens unset; the messages API requires a value.
const defaultAnthropicMaxTokens = 1024

// Anthropic talks to the messages API. System-role messages are hoisted
// into the top-level system field (the API accepts no system role in the
// message list); user/assistant messages keep their part ordering.
type Anthropic struct {
	client *resty.Client
	cfg    Config
}

func newAnthropic(pc config.AnthropicConfig, apiKey string, cfg Config) *Anthropic {
	client := resty.New().
		SetBaseURL(pc.BaseURL).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", pc.Version).
		SetTimeout(2 * time.Minute)

	return &Anthropic{client: client, cfg: cfg}
}

func (a *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string          `json:"role"`
	Content []anthropicPart `json:"content"`
}

type anthropicPart struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Anthropic) Invoke(ctx context.Context, messages []Message) (string, error) {
	maxTokens := a.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	req := anthropicRequest{
		Model:       a.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: a.cfg.Temperature,
	}

	var system []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			for _, p := range m.Parts {
				if p.Type == PartText {
					system = append(system, p.Text)
				}
			}
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    m.Role,
			Content: anthropicContent(m.Parts),
		})
	}
	req.System = strings.Join(system, "\n\n")

	var out anthropicResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("anthropic: %s (%s)", out.Error.Message, out.Error.Type)
		}
		return "", fmt.Errorf("anthropic: unexpected status %s", resp.Status())
	}

	var text strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: response carried no text content")
	}

	return text.String(), nil
}

func anthropicContent(parts []Part) []anthropicPart {
	content := make([]anthropicPart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			content = append(content, anthropicPart{Type: "text", Text: p.Text})
		case PartImage:
			content = append(content, anthropicPart{
				Type: "image",
				Source: &anthropicSource{
					Type:      "base64",
					MediaType: p.MediaType,
					Data:      p.Data,
				},
			})
		}
	}
	return content
}
