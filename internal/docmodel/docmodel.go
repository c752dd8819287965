// Package docmodel parses source documents into front matter fields and a body
// while keeping enough positional information to report errors against the
// original file.
package docmodel

import (
	"sync"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
)

// Options controls parsing behavior for ParsedDoc.
type Options struct {
	// RequireFrontMatter rejects documents without a front matter block.
	RequireFrontMatter bool
}

// ParsedDoc represents a document split into YAML front matter and body.
type ParsedDoc struct {
	fmRaw []byte
	body  []byte
	hadFM bool
	style frontmatter.Style

	fieldsOnce sync.Once
	fields     map[string]any
	fieldsErr  error
}

// Parse parses raw file content into a ParsedDoc.
func Parse(content []byte, opts Options) (*ParsedDoc, error) {
	fmRaw, body, had, style, err := frontmatter.Split(content)
	if err != nil {
		return nil, errors.FrontMatterError("failed to split front matter").WithCause(err).Build()
	}
	if opts.RequireFrontMatter && !had {
		return nil, errors.FrontMatterError("document has no front matter block").Build()
	}

	doc := &ParsedDoc{
		body:  append([]byte(nil), body...),
		hadFM: had,
		style: style,
	}
	if had {
		doc.fmRaw = append([]byte{}, fmRaw...)
	}
	return doc, nil
}

// ParseFile reads a file from fs and parses it into a ParsedDoc.
func ParseFile(fs afero.Fs, path string, opts Options) (*ParsedDoc, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read document").
			WithContext("file", path).
			Build()
	}

	doc, err := Parse(content, opts)
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("file", path)
		}
		return nil, err
	}
	return doc, nil
}

// HadFrontmatter reports whether the document contained a front matter block.
func (d *ParsedDoc) HadFrontmatter() bool {
	return d.hadFM
}

// FrontmatterRaw returns the raw YAML front matter bytes (without delimiters).
func (d *ParsedDoc) FrontmatterRaw() []byte {
	if !d.hadFM {
		return nil
	}
	return append([]byte{}, d.fmRaw...)
}

// Fields decodes the front matter block. The result is cached; callers get a
// fresh top-level map on every call but share nested values.
func (d *ParsedDoc) Fields() (map[string]any, error) {
	d.fieldsOnce.Do(func() {
		fields, err := frontmatter.ParseYAML(d.fmRaw)
		if err != nil {
			line := 0
			if ye, ok := lineFromYAMLError(err); ok {
				line = ye + 1
			}
			d.fieldsErr = errors.FrontMatterError("invalid front matter").
				WithCause(err).
				WithContext("line", line).
				Build()
			return
		}
		d.fields = fields
	})
	if d.fieldsErr != nil {
		return nil, d.fieldsErr
	}
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out, nil
}

// Body returns the document body (front matter removed).
func (d *ParsedDoc) Body() []byte {
	return append([]byte(nil), d.body...)
}

// Style returns the detected newline style.
func (d *ParsedDoc) Style() frontmatter.Style {
	return d.style
}
