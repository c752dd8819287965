package compiler

import (
	"context"
	stderrors "errors"
	"fmt"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
	"git.home.luguber.info/inful/pagebuilder/internal/templates"
)

// FileAwareError attaches the source file, and a line in that file when
// known, to an error escaping a compile call.
type FileAwareError struct {
	Path string
	Line int
	Err  error
}

func (e *FileAwareError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileAwareError) Unwrap() error { return e.Err }

// AsFileAwareError finds a FileAwareError in err's chain.
func AsFileAwareError(err error) (*FileAwareError, bool) {
	var fe *FileAwareError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsFatal reports whether err must stop the whole build. Template failures,
// output and filesystem failures and cancellation are fatal. Everything else
// only fails the document it came from.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if _, ok := templates.AsTemplateError(err); ok {
		return true
	}
	switch errors.GetCategory(err) {
	case errors.CategoryTemplate, errors.CategoryOutput, errors.CategoryFileSystem:
		return true
	}
	return false
}

// wrapPageError annotates err with the page view's path. Template lines are
// moved from fragment to file coordinates when the failing template is the
// page body itself.
func wrapPageError(pv *pageview.PageView, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsFileAwareError(err); ok {
		return err
	}
	fe := &FileAwareError{Path: pv.SourcePath, Err: err}

	if te, ok := templates.AsTemplateError(err); ok {
		if te.Name == pv.SourcePath {
			if te.Line > 0 {
				fe.Line = te.Line + pv.LineOffset
			}
		} else {
			fe.Path = te.Name
			fe.Line = te.Line
		}
		return fe
	}

	var ve *resolver.VariableError
	if stderrors.As(err, &ve) {
		fe.Line = pv.KeyLine(ve.Key)
		return fe
	}

	if ce, ok := errors.AsClassified(err); ok {
		if line, ok := ce.Context().Get("line"); ok {
			if n, ok := line.(int); ok {
				fe.Line = n
			}
		}
	}
	return fe
}

func wrapItemError(path string, err error) error {
	if _, ok := AsFileAwareError(err); ok {
		return err
	}
	return &FileAwareError{Path: path, Err: err}
}

// DocumentError wraps a load or bind failure in a *FileAwareError using the
// "file" and "line" context of a classified error.
func DocumentError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsFileAwareError(err); ok {
		return err
	}
	fe := &FileAwareError{Path: itemPath(err), Err: err}
	if ce, ok := errors.AsClassified(err); ok {
		if line, ok := ce.Context().Get("line"); ok {
			if n, ok := line.(int); ok {
				fe.Line = n
			}
		}
	}
	return fe
}

// PageError wraps err in a *FileAwareError pointing into pv.
func PageError(pv *pageview.PageView, err error) error {
	return wrapPageError(pv, err)
}
