package resolver

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cast"
)

// refPattern matches %{dotted.path} and %name references.
var refPattern = regexp.MustCompile(`%\{([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\}|%([a-zA-Z]+)`)

type ref struct {
	token   string
	name    string
	complex bool
}

func parseRef(token string) ref {
	m := refPattern.FindStringSubmatch(token)
	if m[1] != "" {
		return ref{token: token, name: m[1], complex: true}
	}
	return ref{token: token, name: m[2]}
}

// refsIn lists distinct references in order of first appearance.
func refsIn(s string) []ref {
	tokens := refPattern.FindAllString(s, -1)
	seen := make(map[string]bool, len(tokens))
	out := make([]ref, 0, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, parseRef(tok))
	}
	return out
}

// ReplaceReferences substitutes every reference in s with fn's result. name
// is the variable name or dotted path, complex is true for %{...} tokens.
func ReplaceReferences(s string, fn func(name string, complex bool) string) string {
	return refPattern.ReplaceAllStringFunc(s, func(tok string) string {
		rf := parseRef(tok)
		return fn(rf.name, rf.complex)
	})
}

// scalarString renders a scalar value for substitution.
func scalarString(v any, name, key string) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case time.Time:
		return formatTime(val), nil
	case bool, []any, map[string]any, map[any]any:
		return "", unsupported(name, key, v)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", unsupported(name, key, v)
	}
	return s, nil
}

// iteratorValue keeps integers as ints and renders everything else as a string.
func iteratorValue(v any) any {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt(v)
	case time.Time:
		return formatTime(v.(time.Time))
	}
	return cast.ToString(v)
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = deepCopy(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprint(k)] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = deepCopy(child)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = child
		}
		return out
	default:
		return v
	}
}
