package state

import "strings"

// Resolve walks a dotted path ("results.generate_copy.confidence")
// through a nested map. The second return value reports presence: it is
// false when any intermediate value is missing, nil, or not a map, which
// keeps lookups into speculative branches from aborting a run. A present
// nil resolves as (nil, true).
func Resolve(path string, root map[string]any) (any, bool) {
	var current any = root
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
