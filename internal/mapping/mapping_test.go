package mapping

import (
	"reflect"
	"testing"

	"github.com/axonworks/axon/internal/state"
)

func TestResolveInputDefaultsToRunInput(t *testing.T) {
	st := state.New(map[string]any{"product": "soap", "tone": "playful"})

	got := ResolveInput(nil, st)
	if !reflect.DeepEqual(got, st.Input) {
		t.Errorf("expected run input passthrough, got %v", got)
	}

	got = ResolveInput(map[string]string{}, st)
	if !reflect.DeepEqual(got, st.Input) {
		t.Errorf("expected run input passthrough for empty mapping, got %v", got)
	}
}

func TestResolveInputAgainstFullState(t *testing.T) {
	st := state.New(map[string]any{"product": "soap"})
	st.SetResult("generate_copy", map[string]any{"text": "Buy soap.", "confidence": 0.9})

	got := ResolveInput(map[string]string{
		"text":    "results.generate_copy.text",
		"product": "input.product",
		"missing": "results.review.note",
	}, st)

	want := map[string]any{
		"text":    "Buy soap.",
		"product": "soap",
		"missing": nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveInput = %v, want %v", got, want)
	}
}

func TestApplyOutputShallow(t *testing.T) {
	raw := map[string]any{"y": 5, "z": 9}

	got := ApplyOutput(map[string]string{"x": "y"}, raw)

	want := map[string]any{"x": 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyOutput = %v, want %v", got, want)
	}
}

func TestApplyOutputEmptyMappingVerbatim(t *testing.T) {
	raw := map[string]any{"text": "hello"}

	got := ApplyOutput(nil, raw)
	if !reflect.DeepEqual(got, raw) {
		t.Errorf("expected verbatim output, got %v", got)
	}
}

func TestApplyOutputMissingKey(t *testing.T) {
	got := ApplyOutput(map[string]string{"final": "text"}, map[string]any{"other": 1})
	if v, ok := got["final"]; !ok || v != nil {
		t.Errorf("expected nil for missing source key, got %v (present=%v)", v, ok)
	}
}
