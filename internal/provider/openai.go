package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAI talks to the chat completions API. Multi-part content is sent
// as the API's content-array form, images as base64 data URLs.
type OpenAI struct {
	client *resty.Client
	cfg    Config
}

func newOpenAI(baseURL, apiKey string, cfg Config) *OpenAI {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(2 * time.Minute)

	return &OpenAI{client: client, cfg: cfg}
}

func (o *OpenAI) Name() string { return "openai" }

type openaiTextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openaiImagePart struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Messages    []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (o *OpenAI) Invoke(ctx context.Context, messages []Message) (string, error) {
	req := openaiRequest{
		Model:       o.cfg.Model,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
		Messages:    make([]openaiMessage, 0, len(messages)),
	}

	for _, m := range messages {
		req.Messages = append(req.Messages, openaiMessage{
			Role:    m.Role,
			Content: openaiContent(m.Parts),
		})
	}

	var out openaiResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("openai: %s (%s)", out.Error.Message, out.Error.Type)
		}
		return "", fmt.Errorf("openai: unexpected status %s", resp.Status())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: response carried no choices")
	}

	return out.Choices[0].Message.Content, nil
}

// openaiContent collapses a single text part to the plain string form;
// anything else becomes the content-array form, parts kept in order.
func openaiContent(parts []Part) any {
	if len(parts) == 1 && parts[0].Type == PartText {
		return parts[0].Text
	}

	content := make([]any, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			content = append(content, openaiTextPart{Type: "text", Text: p.Text})
		case PartImage:
			img := openaiImagePart{Type: "image_url"}
			img.ImageURL.URL = fmt.Sprintf("data:%s;base64,%s", p.MediaType, p.Data)
			content = append(content, img)
		}
	}
	return content
}
