package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Schema violation kinds. These travel as data, not errors: a task whose
// output fails validation still completes, and downstream conditions may
// branch on the tag.
const (
	KindInvalidJSON   = "invalid_json"
	KindMissingFields = "missing_required_fields"
	KindTypeMismatch  = "type_mismatch"
)

// Output is the result of one agent invocation: either a conforming
// payload (Data) or a schema violation (Err). Exactly one arm is set.
type Output struct {
	Data map[string]any
	Err  *SchemaError
}

// SchemaError describes how a raw response failed validation.
type SchemaError struct {
	Kind          string
	Detail        string
	RawText       string
	MissingFields []string
	TypeErrors    []string
	Partial       map[string]any
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", e.Kind)
}

// OK reports whether the output conformed.
func (o Output) OK() bool { return o.Err == nil }

// AsMap renders the output for merging into execution state. The error
// arm becomes the tagged map shape consumers branch on.
func (o Output) AsMap() map[string]any {
	if o.Err == nil {
		return o.Data
	}

	switch o.Err.Kind {
	case KindInvalidJSON:
		return map[string]any{
			"_error":       KindInvalidJSON,
			"error_detail": o.Err.Detail,
			"raw_output":   o.Err.RawText,
		}
	case KindMissingFields:
		return map[string]any{
			"_error":         KindMissingFields,
			"missing_fields": toAnySlice(o.Err.MissingFields),
			"partial_output": o.Err.Partial,
		}
	case KindTypeMismatch:
		return map[string]any{
			"_error":         KindTypeMismatch,
			"type_errors":    toAnySlice(o.Err.TypeErrors),
			"partial_output": o.Err.Partial,
		}
	}
	return map[string]any{"_error": o.Err.Kind}
}

// ParseOutput validates raw response text against an output schema.
// Without a schema the raw text is wrapped as {"text": raw}. With one,
// the text is JSON-parsed (after stripping a single fenced code block)
// and checked field by field: every schema key must be present with the
// declared primitive type.
func ParseOutput(raw string, schema map[string]string) Output {
	if len(schema) == 0 {
		return Output{Data: map[string]any{"text": raw}}
	}

	cleaned := stripFence(raw)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Output{Err: &SchemaError{
			Kind:    KindInvalidJSON,
			Detail:  err.Error(),
			RawText: raw,
		}}
	}

	var missing []string
	for field := range schema {
		if _, ok := parsed[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Output{Err: &SchemaError{
			Kind:          KindMissingFields,
			RawText:       raw,
			MissingFields: missing,
			Partial:       parsed,
		}}
	}

	var typeErrors []string
	for field, tag := range schema {
		if !matchesType(parsed[field], tag) {
			typeErrors = append(typeErrors, fmt.Sprintf("%s: expected %s, got %s", field, tag, typeName(parsed[field])))
		}
	}
	if len(typeErrors) > 0 {
		sort.Strings(typeErrors)
		return Output{Err: &SchemaError{
			Kind:       KindTypeMismatch,
			RawText:    raw,
			TypeErrors: typeErrors,
			Partial:    parsed,
		}}
	}

	return Output{Data: parsed}
}

// stripFence removes one leading/trailing markdown code fence (with an
// optional language tag), the common wrapper models put around JSON.
func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:] // drop ``` or ```json
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func matchesType(v any, tag string) bool {
	switch tag {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	// Unknown tags are rejected at definition load; treat as conforming
	// here so a stale definition degrades softly.
	return true
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case []any:
		return "array"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
