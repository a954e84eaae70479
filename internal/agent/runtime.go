// Package agent turns a task's agent definition (role, instructions,
// provider config, optional output schema) into a generative-model call
// and a validated result, independent of which backend serves the call.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/axonworks/axon/internal/definition"
	"github.com/axonworks/axon/internal/provider"
)

// imageStringMinLen is the heuristic threshold for treating a scalar
// "image" field as inline base64: longer than this and containing no
// whitespace.
const imageStringMinLen = 100

// Runtime is one agent bound to a concrete provider backend.
type Runtime struct {
	name         string
	role         string
	instructions string
	schema       map[string]string
	backend      provider.Provider
}

func NewRuntime(def *definition.Agent, backend provider.Provider) *Runtime {
	return &Runtime{
		name:         def.Name,
		role:         def.Role,
		instructions: def.Instructions,
		schema:       def.OutputSchema,
		backend:      backend,
	}
}

// Run builds the message sequence for the input payload, invokes the
// backend, and validates the response against the output schema. A
// backend failure is returned as an error; a schema violation is not —
// it comes back as the error arm of Output so the caller can record it
// and keep going.
func (r *Runtime) Run(ctx context.Context, input map[string]any) (Output, error) {
	messages := r.BuildMessages(input)

	raw, err := r.backend.Invoke(ctx, messages)
	if err != nil {
		return Output{}, fmt.Errorf("agent %s: invoke %s: %w", r.name, r.backend.Name(), err)
	}

	out := ParseOutput(raw, r.schema)
	if !out.OK() {
		slog.Warn("agent output failed schema validation",
			"agent", r.name, "kind", out.Err.Kind)
	}
	return out, nil
}

// BuildMessages constructs the provider-agnostic sequence: one system
// message carrying the persona, one user message carrying the payload
// (multi-part when images are present), and, when an output schema is
// declared, a trailing system message demanding schema-exact JSON.
func (r *Runtime) BuildMessages(input map[string]any) []provider.Message {
	messages := []provider.Message{
		provider.Text(provider.RoleSystem, fmt.Sprintf("Act as %s. %s", r.role, r.instructions)),
	}

	if DetectImages(input) {
		messages = append(messages, provider.Message{
			Role:  provider.RoleUser,
			Parts: buildMultimodalParts(input),
		})
	} else {
		messages = append(messages, provider.Text(provider.RoleUser, renderPayloadText(input)))
	}

	if len(r.schema) > 0 {
		messages = append(messages, provider.Text(provider.RoleSystem, schemaInstruction(r.schema)))
	}

	return messages
}

// DetectImages reports whether a payload is multi-modal: a non-empty
// "images" list, or a scalar "image" string that looks like inline
// base64 (long, no whitespace).
func DetectImages(payload map[string]any) bool {
	if imgs, ok := payload["images"].([]any); ok && len(imgs) > 0 {
		return true
	}
	if s, ok := payload["image"].(string); ok {
		return len(s) > imageStringMinLen && !strings.ContainsAny(s, " \t\n\r")
	}
	return false
}

// renderPayloadText serializes a payload as line-oriented "key: value"
// text. Fields are emitted in sorted key order: Go maps carry no
// insertion order, and sorted rendering keeps prompts deterministic.
func renderPayloadText(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, renderValue(payload[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderValue(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", v)
}

// buildMultimodalParts emits the text part(s) first, then the image
// parts in their declared order.
func buildMultimodalParts(payload map[string]any) []provider.Part {
	text := map[string]any{}
	var images []provider.Part

	for k, v := range payload {
		switch k {
		case "images":
			list, ok := v.([]any)
			if !ok {
				text[k] = v
				continue
			}
			for _, entry := range list {
				if p, ok := imagePart(entry); ok {
					images = append(images, p)
				}
			}
		case "image":
			if s, ok := v.(string); ok && len(s) > imageStringMinLen && !strings.ContainsAny(s, " \t\n\r") {
				images = append(images, provider.Part{
					Type:      provider.PartImage,
					MediaType: sniffMediaType(s),
					Data:      s,
				})
				continue
			}
			text[k] = v
		default:
			text[k] = v
		}
	}

	parts := []provider.Part{{Type: provider.PartText, Text: renderPayloadText(text)}}
	return append(parts, images...)
}

// imagePart accepts the structured form {"data": ..., "media_type": ...}
// or a bare base64 string.
func imagePart(entry any) (provider.Part, bool) {
	switch e := entry.(type) {
	case map[string]any:
		data, _ := e["data"].(string)
		if data == "" {
			return provider.Part{}, false
		}
		mediaType, _ := e["media_type"].(string)
		if mediaType == "" {
			mediaType = sniffMediaType(data)
		}
		return provider.Part{Type: provider.PartImage, MediaType: mediaType, Data: data}, true
	case string:
		if e == "" {
			return provider.Part{}, false
		}
		return provider.Part{Type: provider.PartImage, MediaType: sniffMediaType(e), Data: e}, true
	}
	return provider.Part{}, false
}

// sniffMediaType guesses from well-known base64 prefixes, defaulting to
// JPEG.
func sniffMediaType(base64Data string) string {
	switch {
	case strings.HasPrefix(base64Data, "iVBOR"):
		return "image/png"
	case strings.HasPrefix(base64Data, "R0lGOD"):
		return "image/gif"
	case strings.HasPrefix(base64Data, "UklGR"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// schemaInstruction renders the trailing system message demanding JSON
// that matches the declared schema exactly, with a literal example.
func schemaInstruction(schema map[string]string) string {
	fields := make([]string, 0, len(schema))
	example := make(map[string]any, len(schema))
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%q (%s)", k, schema[k]))
		example[k] = exampleValue(schema[k])
	}

	exampleJSON, _ := json.Marshal(example)

	return fmt.Sprintf(
		"Respond with a single JSON object that matches this schema exactly, field by field: %s. "+
			"Example: %s. Do not include any text outside the JSON object.",
		strings.Join(fields, ", "), exampleJSON)
}

func exampleValue(typeTag string) any {
	switch typeTag {
	case "string":
		return "..."
	case "number":
		return 0.5
	case "array":
		return []any{"..."}
	case "boolean":
		return true
	case "object":
		return map[string]any{}
	default:
		return nil
	}
}
