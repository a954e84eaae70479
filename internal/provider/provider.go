// Package provider abstracts the generative-model backends behind a
// single Invoke boundary. Each backend owns its own request/response
// shape translation but preserves message role semantics and multi-part
// content ordering.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/axonworks/axon/internal/config"
)

// ErrUnknownProvider marks a provider name with no registered backend.
// Always a fatal configuration error.
var ErrUnknownProvider = errors.New("unknown provider")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part types within a multi-part message.
const (
	PartText  = "text"
	PartImage = "image"
)

// Part is one typed element of a message's content.
type Part struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"` // base64 image payload
}

// Message is a role-tagged, ordered sequence of content parts.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text builds a single-part text message.
func Text(role, text string) Message {
	return Message{Role: role, Parts: []Part{{Type: PartText, Text: text}}}
}

// Config selects and parameterizes a backend for one agent.
type Config struct {
	Provider    string         `yaml:"provider" json:"provider"`
	Model       string         `yaml:"model" json:"model"`
	Temperature float64        `yaml:"temperature" json:"temperature"`
	MaxTokens   int            `yaml:"max_tokens" json:"max_tokens"`
	Extra       map[string]any `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Provider is the generative-model capability: turn an ordered message
// sequence into raw response text. Implementations block until the
// backend answers; the context is the only cancellation seam.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, messages []Message) (string, error)
}

// KeyLookup resolves an API key for a provider name from an external
// source (the credential vault) when the config carries none.
type KeyLookup func(name string) (string, bool)

// Factory maps a provider name from an agent's config to a concrete
// backend instance.
type Factory struct {
	cfg       config.ProvidersConfig
	keyLookup KeyLookup
	custom    map[string]Provider
}

func NewFactory(cfg config.ProvidersConfig) *Factory {
	return &Factory{cfg: cfg, custom: make(map[string]Provider)}
}

// SetKeyLookup installs a fallback key source consulted after the
// config file and environment.
func (f *Factory) SetKeyLookup(fn KeyLookup) {
	f.keyLookup = fn
}

// Register installs a backend under a name, overriding the built-ins.
// Used for the deterministic mock in tests and dry runs.
func (f *Factory) Register(name string, p Provider) {
	f.custom[name] = p
}

// Resolve returns the backend for the config's provider name. An
// unrecognized name is fatal.
func (f *Factory) Resolve(cfg Config) (Provider, error) {
	if p, ok := f.custom[cfg.Provider]; ok {
		return p, nil
	}

	switch cfg.Provider {
	case "openai":
		key, err := f.apiKey("openai", f.cfg.OpenAI.APIKey)
		if err != nil {
			return nil, err
		}
		return newOpenAI(f.cfg.OpenAI.BaseURL, key, cfg), nil
	case "anthropic":
		key, err := f.apiKey("anthropic", f.cfg.Anthropic.APIKey)
		if err != nil {
			return nil, err
		}
		return newAnthropic(f.cfg.Anthropic, key, cfg), nil
	case "mock":
		return NewMock(), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func (f *Factory) apiKey(name, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if f.keyLookup != nil {
		if key, ok := f.keyLookup(name); ok {
			return key, nil
		}
	}
	return "", fmt.Errorf("no api key configured for provider %q", name)
}
