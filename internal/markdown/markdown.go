// Package markdown converts Markdown bodies to HTML with goldmark.
package markdown

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Options controls the goldmark configuration.
type Options struct {
	// Unsafe allows raw HTML in Markdown sources.
	Unsafe bool
}

// Converter renders Markdown to HTML. It is safe for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

// New builds a Converter with GitHub flavoured Markdown, footnotes and
// automatic heading ids.
func New(opts Options) *Converter {
	rendererOpts := []goldmark.Option{}
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	md := goldmark.New(append(rendererOpts,
		goldmark.WithExtensions(extension.GFM, extension.Footnote, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)...)
	return &Converter{md: md}
}

var (
	defaultOnce      sync.Once
	defaultConverter *Converter
)

// Default returns the shared converter used for content bodies.
func Default() *Converter {
	defaultOnce.Do(func() {
		defaultConverter = New(Options{Unsafe: true})
	})
	return defaultConverter
}

// Convert renders body to HTML.
func (c *Converter) Convert(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(body, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Convert renders body with the default converter.
func Convert(body []byte) (string, error) {
	return Default().Convert(body)
}

// Title returns the text of the first level one heading, or "".
func Title(body []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(body))
	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok || h.Level != 1 {
			return gmast.WalkContinue, nil
		}
		var b strings.Builder
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*gmast.Text); ok {
				b.Write(t.Segment.Value(body))
			}
		}
		title = strings.TrimSpace(b.String())
		return gmast.WalkStop, nil
	})
	return title
}
