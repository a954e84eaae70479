// Package state holds the execution state threaded through a process run:
// the original input payload, the accumulated per-task results, and
// run-scoped metadata. A State is exclusively owned by one in-flight run.
package state

// State is the mutable value carried across tasks during a single run.
// Results grow monotonically: a task's output is never removed once
// written, though a revisited task node overwrites its own entry.
type State struct {
	Input   map[string]any            `json:"input"`
	Results map[string]map[string]any `json:"results"`
	Meta    map[string]any            `json:"meta"`
}

// New initializes run state from the caller's input payload.
func New(input map[string]any) *State {
	if input == nil {
		input = map[string]any{}
	}
	return &State{
		Input:   input,
		Results: map[string]map[string]any{},
		Meta:    map[string]any{},
	}
}

// SetResult records a task's mapped output under the task name. The
// output is deep-copied so later writes through the caller's reference
// cannot alias into recorded state.
func (s *State) SetResult(task string, output map[string]any) {
	s.Results[task] = CopyMap(output)
}

// AsMap renders the state as a plain nested map, the shape path lookups
// and persisted snapshots operate on.
func (s *State) AsMap() map[string]any {
	results := make(map[string]any, len(s.Results))
	for name, out := range s.Results {
		results[name] = out
	}
	return map[string]any{
		"input":   s.Input,
		"results": results,
		"meta":    s.Meta,
	}
}

// Snapshot returns a deep copy of the state map, safe to persist while
// the run keeps mutating the live state.
func (s *State) Snapshot() map[string]any {
	return CopyMap(s.AsMap())
}

// CopyMap deep-copies a nested map of JSON-shaped values. Scalars are
// shared (they are immutable); maps and slices are cloned.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
