package compiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/templates"
)

func TestFileAwareError(t *testing.T) {
	inner := stderrors.New("boom")
	err := fmt.Errorf("compile: %w", &FileAwareError{Path: "_pages/a.html", Line: 12, Err: inner})

	fe, ok := AsFileAwareError(err)
	assert.True(t, ok)
	assert.Equal(t, "_pages/a.html:12: boom", fe.Error())
	assert.ErrorIs(t, err, inner)

	noLine := &FileAwareError{Path: "b.html", Err: inner}
	assert.Equal(t, "b.html: boom", noLine.Error())
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"template", &templates.TemplateError{Name: "x", Err: stderrors.New("bad")}, true},
		{"output", errors.OutputError("disk full").Build(), true},
		{"filesystem", errors.FileSystemError("no such dir").Build(), true},
		{"canceled", context.Canceled, true},
		{"front matter", errors.FrontMatterError("bad key").Build(), false},
		{"content", errors.ContentError("empty").Build(), false},
		{"plain", stderrors.New("x"), false},
		{"wrapped template", &FileAwareError{Path: "a", Err: &templates.TemplateError{Name: "a", Err: stderrors.New("bad")}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}
