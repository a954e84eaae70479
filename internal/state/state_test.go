package state

import "testing"

func TestNewInitializesEmptySections(t *testing.T) {
	s := New(map[string]any{"product": "toothpaste"})

	if s.Input["product"] != "toothpaste" {
		t.Errorf("expected input to carry payload, got %v", s.Input)
	}
	if len(s.Results) != 0 {
		t.Errorf("expected empty results, got %v", s.Results)
	}
	if len(s.Meta) != 0 {
		t.Errorf("expected empty meta, got %v", s.Meta)
	}
}

func TestNewNilInput(t *testing.T) {
	s := New(nil)
	if s.Input == nil {
		t.Fatal("expected non-nil input map")
	}
}

func TestSetResultCopies(t *testing.T) {
	s := New(nil)
	out := map[string]any{"text": "hello", "nested": map[string]any{"n": 1}}
	s.SetResult("generate", out)

	out["text"] = "mutated"
	out["nested"].(map[string]any)["n"] = 2

	got := s.Results["generate"]
	if got["text"] != "hello" {
		t.Errorf("expected recorded output isolated from caller mutation, got %v", got["text"])
	}
	if got["nested"].(map[string]any)["n"] != 1 {
		t.Errorf("expected nested map copied, got %v", got["nested"])
	}
}

func TestSnapshotIsolatedFromLiveState(t *testing.T) {
	s := New(map[string]any{"k": "v"})
	s.SetResult("a", map[string]any{"x": 1})

	snap := s.Snapshot()
	s.SetResult("a", map[string]any{"x": 2})
	s.SetResult("b", map[string]any{"y": 3})

	results := snap["results"].(map[string]any)
	if len(results) != 1 {
		t.Fatalf("expected snapshot to keep 1 result, got %d", len(results))
	}
	if results["a"].(map[string]any)["x"] != 1 {
		t.Errorf("expected snapshot value 1, got %v", results["a"])
	}
}
