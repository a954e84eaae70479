// Package mapping builds task inputs from execution state and reshapes
// task outputs before they are merged back, driven by the declarative
// field mappings on a task definition.
package mapping

import "github.com/axonworks/axon/internal/state"

// ResolveInput builds a task's input payload. An empty mapping means
// "pass the run input through as-is". Otherwise each target field is
// resolved as a dotted path against the entire state, so mappings may
// reference input.* as well as results.<task>.*. Unresolvable paths
// yield nil fields rather than errors.
func ResolveInput(mapping map[string]string, st *state.State) map[string]any {
	if len(mapping) == 0 {
		return st.Input
	}

	root := st.AsMap()
	resolved := make(map[string]any, len(mapping))
	for field, path := range mapping {
		v, _ := state.Resolve(path, root)
		resolved[field] = v
	}
	return resolved
}

// ApplyOutput reshapes a task's raw output. An empty mapping keeps the
// raw output verbatim. Otherwise each target field is a single-level
// key lookup in the raw output; this step is intentionally shallow and
// never reaches into global state. Missing source keys map to nil.
func ApplyOutput(mapping map[string]string, raw map[string]any) map[string]any {
	if len(mapping) == 0 {
		return raw
	}

	mapped := make(map[string]any, len(mapping))
	for field, sourceKey := range mapping {
		mapped[field] = raw[sourceKey]
	}
	return mapped
}
