package templates

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
)

// TemplateError is a parse or execution failure. Line is relative to the
// template source that failed, 0 when unknown.
type TemplateError struct {
	Name string
	Line int
	Err  error
}

func (e *TemplateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template %s:%d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("template %s: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Matches "template: name:12:" and "html/template:name:12:".
var lineRe = regexp.MustCompile(`template:\s?([^:\s]+):(\d+)`)

// NewTemplateError wraps err, extracting the failing template and line.
// name is matched literally first, so it may contain spaces or colons;
// other names (layouts) are parsed from the message.
func NewTemplateError(name string, err error) *TemplateError {
	te := &TemplateError{Name: name, Err: err}
	msg := err.Error()
	if name != "" {
		own := regexp.MustCompile(`template:\s?` + regexp.QuoteMeta(name) + `:(\d+)`)
		if m := own.FindStringSubmatch(msg); m != nil {
			te.Line, _ = strconv.Atoi(m[1])
			return te
		}
	}
	if m := lineRe.FindStringSubmatch(msg); m != nil {
		te.Name = m[1]
		te.Line, _ = strconv.Atoi(m[2])
	}
	return te
}

// AsTemplateError finds a TemplateError in err's chain.
func AsTemplateError(err error) (*TemplateError, bool) {
	var te *TemplateError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}
