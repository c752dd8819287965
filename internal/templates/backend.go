// Package templates renders page bodies and layouts with html/template.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Backend renders a template source against a context.
type Backend interface {
	// Render parses source as a template called name and executes it.
	Render(name, source string, ctx map[string]any) (string, error)
	// RenderLayout executes a named layout with ctx.
	RenderLayout(layout string, ctx map[string]any) (string, error)
}

// Options configures an HTMLBackend.
type Options struct {
	Fs afero.Fs
	// LayoutsDir holds the shared templates, addressed by their path
	// relative to the directory (e.g. "default.html", "partials/nav.html").
	LayoutsDir string
	BaseURL    string
}

// HTMLBackend renders with html/template. Layouts are parsed once and cloned
// for every render so concurrent renders never share template state.
type HTMLBackend struct {
	base    *template.Template
	layouts map[string]bool
}

// NewHTMLBackend loads layouts from opts.LayoutsDir. A missing directory
// yields a backend without layouts.
func NewHTMLBackend(opts Options) (*HTMLBackend, error) {
	base := template.New("").Funcs(FuncMap(opts.BaseURL)).Option("missingkey=zero")
	b := &HTMLBackend{base: base, layouts: make(map[string]bool)}
	if opts.Fs == nil || opts.LayoutsDir == "" {
		return b, nil
	}

	exists, err := afero.DirExists(opts.Fs, opts.LayoutsDir)
	if err != nil || !exists {
		return b, nil
	}

	err = afero.Walk(opts.Fs, opts.LayoutsDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(opts.LayoutsDir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		src, err := afero.ReadFile(opts.Fs, p)
		if err != nil {
			return err
		}
		if _, err := base.New(name).Parse(string(src)); err != nil {
			return NewTemplateError(name, err)
		}
		b.layouts[name] = true
		return nil
	})
	if err != nil {
		if te, ok := AsTemplateError(err); ok {
			return nil, te
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to load layouts").
			WithContext("path", opts.LayoutsDir).
			Build()
	}
	return b, nil
}

// HasLayout reports whether a layout with the given name was loaded.
func (b *HTMLBackend) HasLayout(name string) bool {
	return b.layouts[path.Clean(name)]
}

// Render parses source as template name and executes it with ctx.
func (b *HTMLBackend) Render(name, source string, ctx map[string]any) (string, error) {
	t, err := b.base.Clone()
	if err != nil {
		return "", NewTemplateError(name, err)
	}
	if _, err := t.New(name).Parse(source); err != nil {
		return "", NewTemplateError(name, err)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", NewTemplateError(name, err)
	}
	return buf.String(), nil
}

// RenderLayout executes a previously loaded layout.
func (b *HTMLBackend) RenderLayout(layout string, ctx map[string]any) (string, error) {
	name := path.Clean(layout)
	if !b.layouts[name] {
		return "", &TemplateError{Name: name, Err: fmt.Errorf("layout %q not found", layout)}
	}
	t, err := b.base.Clone()
	if err != nil {
		return "", NewTemplateError(name, err)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", NewTemplateError(name, err)
	}
	return buf.String(), nil
}
