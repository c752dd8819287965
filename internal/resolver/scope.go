package resolver

import (
	"strings"

	"github.com/spf13/cast"
)

// Scope is the read-only complex scope addressed by %{dotted.path}.
type Scope map[string]any

// Lookup follows dot separated segments through nested mappings.
func (s Scope) Lookup(path string) (any, bool) {
	if s == nil || path == "" {
		return nil, false
	}
	var cur any = map[string]any(s)
	for _, seg := range strings.Split(path, ".") {
		if nested, ok := cur.(Scope); ok {
			cur = map[string]any(nested)
		}
		m, err := cast.ToStringMapE(cur)
		if err != nil {
			return nil, false
		}
		next, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Merge returns a new scope with other's top-level namespaces layered on top.
func (s Scope) Merge(other Scope) Scope {
	out := make(Scope, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
