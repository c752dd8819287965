// Package content loads collection items (posts, docs, ...) and binds them to
// the front matter defaults of the page that lists them.
package content

import (
	"html/template"
	"path"
	"strings"
	"time"

	"github.com/spf13/cast"

	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

// Item is one document of a collection.
type Item struct {
	Namespace  string
	SourcePath string
	Raw        resolver.FrontMatter
	// Fields holds the resolved front matter once the item is bound.
	Fields     resolver.FrontMatter
	Body       []byte
	HTML       string
	LineOffset int
	ModTime    time.Time

	permalink string
	redirects []string
}

// Permalink returns the canonical permalink of a bound item.
func (it *Item) Permalink() string { return it.permalink }

// Redirects returns the aliases forwarding to the item.
func (it *Item) Redirects() []string { return append([]string(nil), it.redirects...) }

// TargetFile returns the output path of the item.
func (it *Item) TargetFile() string { return output.TargetPath(it.permalink) }

// IsDraft reports the draft flag of the item.
func (it *Item) IsDraft() bool {
	fields := it.Fields
	if fields == nil {
		fields = it.Raw
	}
	return cast.ToBool(fields["draft"])
}

// Date returns the item's date, or the zero time.
func (it *Item) Date() time.Time {
	fields := it.Fields
	if fields == nil {
		fields = it.Raw
	}
	if v, ok := fields["date"]; ok && v != nil {
		if t, err := resolver.DeriveDate(v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Context is the template view of the item.
func (it *Item) Context() map[string]any {
	ctx := make(map[string]any, len(it.Fields)+6)
	fields := it.Fields
	if fields == nil {
		fields = it.Raw
	}
	for k, v := range fields {
		ctx[k] = v
	}
	ctx["content"] = template.HTML(it.HTML) //nolint:gosec // rendered from trusted site sources
	ctx["permalink"] = it.permalink
	ctx["redirects"] = it.Redirects()
	ctx["namespace"] = it.Namespace
	ctx["path"] = it.SourcePath
	if _, ok := ctx["title"]; !ok {
		ctx["title"] = PathOverrides(it.SourcePath)["basename"]
	}
	return ctx
}

// PathOverrides returns the filename derived variables of a source path.
//
//	_posts/2016-01-26-hello.md -> basename "2016-01-26-hello", filename "2016-01-26-hello.md"
func PathOverrides(relPath string) map[string]any {
	filename := path.Base(relPath)
	return map[string]any{
		"basename": strings.TrimSuffix(filename, path.Ext(filename)),
		"filename": filename,
	}
}
