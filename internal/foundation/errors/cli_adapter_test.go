package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapterExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"validation", ValidationError("bad flag").Build(), 2},
		{"frontmatter", FrontMatterError("undefined variable").Build(), 3},
		{"template", TemplateError("render failed").Build(), 4},
		{"config", ConfigError("missing file").Build(), 7},
		{"git", GitError("no repository").Build(), 8},
		{"output", OutputError("write failed").Build(), 11},
		{"server", ServerError("listen failed").Build(), 12},
		{"internal", InternalError("unexpected").Build(), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapterFormat(t *testing.T) {
	t.Run("user action errors carry location", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, nil)
		err := TemplateError("render failed").
			WithCause(errors.New("unexpected EOF")).
			WithContext("file", "_pages/index.html").
			WithContext("line", 12).
			Build()

		got := adapter.FormatError(err)
		assert.Equal(t, "Error: render failed: unexpected EOF (file=_pages/index.html, line=12)", got)
	})

	t.Run("other errors point at verbose mode", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, nil)
		got := adapter.FormatError(OutputError("write failed").Build())
		assert.Equal(t, "Error: write failed (use -v for details)", got)
	})

	t.Run("verbose prints full chain", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(true, nil)
		err := OutputError("write failed").WithCause(errors.New("disk full")).Build()
		assert.Equal(t, "[output:fatal] write failed: disk full", adapter.FormatError(err))
	})

	t.Run("unclassified", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, nil)
		assert.Equal(t, "Error: boom", adapter.FormatError(errors.New("boom")))
		assert.Empty(t, adapter.FormatError(nil))
	})
}
