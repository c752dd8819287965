package resolver

import (
	"errors"
	"fmt"
)

var (
	ErrUndefinedVariable         = errors.New("undefined variable")
	ErrUnsupportedVariableType   = errors.New("unsupported variable type")
	ErrMultidimensionalExpansion = errors.New("multidimensional array expansion is not supported")
	ErrCircularReference         = errors.New("circular variable reference")
	ErrInvalidDate               = errors.New("invalid date")
)

// VariableError reports a failure to resolve a single reference. Kind is one
// of the sentinel errors above; Key is the dotted front matter path that was
// being evaluated when the failure happened.
type VariableError struct {
	Kind error
	Name string
	Key  string
	// Detail carries extra context such as the offending value type.
	Detail string
}

func (e *VariableError) Error() string {
	msg := fmt.Sprintf("%v: %q in %q", e.Kind, e.Name, e.Key)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *VariableError) Unwrap() error { return e.Kind }

func undefined(name, key string) error {
	return &VariableError{Kind: ErrUndefinedVariable, Name: name, Key: key}
}

func unsupported(name, key string, v any) error {
	return &VariableError{Kind: ErrUnsupportedVariableType, Name: name, Key: key, Detail: typeName(v)}
}

func typeName(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
