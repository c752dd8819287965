package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// ExpandedValue is one concrete result of expanding a template together with
// the element each array variable contributed to it.
type ExpandedValue struct {
	evaluated string
	iterators map[string]any
}

// NewExpandedValue builds a value with no iterators, used for templates that
// reference no arrays.
func NewExpandedValue(evaluated string) ExpandedValue {
	return ExpandedValue{evaluated: evaluated}
}

// Evaluated returns the interpolated string.
func (v ExpandedValue) Evaluated() string { return v.evaluated }

func (v ExpandedValue) String() string { return v.evaluated }

// Iterators returns a copy of the iterator assignment.
func (v ExpandedValue) Iterators() map[string]any {
	out := make(map[string]any, len(v.iterators))
	for k, val := range v.iterators {
		out[k] = val
	}
	return out
}

// Iterator returns the element chosen for a single variable.
func (v ExpandedValue) Iterator(name string) (any, bool) {
	val, ok := v.iterators[name]
	return val, ok
}

// WithEvaluated returns a clone carrying a different evaluated string. The
// clone owns its own iterator map.
func (v ExpandedValue) WithEvaluated(s string) ExpandedValue {
	return ExpandedValue{evaluated: s, iterators: v.Iterators()}
}

// Key encodes the iterator assignment as a stable string. Values with equal
// assignments have equal keys regardless of their evaluated strings.
func (v ExpandedValue) Key() string {
	if len(v.iterators) == 0 {
		return ""
	}
	names := make([]string, 0, len(v.iterators))
	for k := range v.iterators {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%v", k, v.iterators[k])
	}
	return strings.Join(parts, ";")
}

// Covers reports whether every iterator of other has the same value in v.
func (v ExpandedValue) Covers(other ExpandedValue) bool {
	for k, ov := range other.iterators {
		if mine, ok := v.iterators[k]; !ok || mine != ov {
			return false
		}
	}
	return true
}

// Evaluated flattens a candidate list into its evaluated strings.
func Evaluated(values []ExpandedValue) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.evaluated
	}
	return out
}
