// Package pageview models the three kinds of page templates a site is built from.
//
// A Static page view renders once at its permalink. A Dynamic page view
// names a collection and renders once per item. A Repeater page view has a
// permalink referencing arrays and renders once per expanded permalink.
package pageview

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cast"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

// Kind tags a PageView. It is fixed at construction.
type Kind int

const (
	KindStatic Kind = iota
	KindDynamic
	KindRepeater
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	case KindRepeater:
		return "repeater"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CollectionField names the collection a Dynamic page view iterates.
const CollectionField = "collection"

// PageView is a page template together with its raw front matter.
type PageView struct {
	kind Kind

	SourcePath string
	Raw        resolver.FrontMatter
	Body       string
	// LineOffset is the number of file lines preceding Body.
	LineOffset int
	Collection string
	Items      []*content.Item
	ModTime    time.Time

	keyLines map[string]int
}

// New classifies doc. relPath is the source path relative to the site root.
func New(doc *docmodel.ParsedDoc, relPath string, r *resolver.Resolver) (*PageView, error) {
	fields, err := doc.Fields()
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("file", relPath)
		}
		return nil, err
	}

	pv := &PageView{
		SourcePath: relPath,
		Raw:        fields,
		Body:       string(doc.Body()),
		LineOffset: doc.LineOffset(),
		keyLines:   doc.KeyLines(),
	}

	if v, ok := fields[CollectionField]; ok && v != nil {
		ns, isString := v.(string)
		if !isString || ns == "" {
			return nil, errors.FrontMatterError("collection must be a non-empty string").
				WithContext("file", relPath).
				WithContext("line", doc.KeyLine(CollectionField)).
				Build()
		}
		pv.kind = KindDynamic
		pv.Collection = ns
		return pv, nil
	}

	if r.WithOverrides(pv.Overrides()).HasExpansion(fields, "permalink") {
		pv.kind = KindRepeater
	}
	return pv, nil
}

// Load reads and classifies a page view from fs.
func Load(fs afero.Fs, full, relPath string, r *resolver.Resolver) (*PageView, error) {
	doc, err := docmodel.ParseFile(fs, full, docmodel.Options{})
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("file", relPath)
		}
		return nil, err
	}
	pv, err := New(doc, relPath, r)
	if err != nil {
		return nil, err
	}
	if info, statErr := fs.Stat(full); statErr == nil {
		pv.ModTime = info.ModTime()
	}
	return pv, nil
}

// Kind returns the page view's kind.
func (pv *PageView) Kind() Kind { return pv.kind }

// Overrides returns the filename derived variables.
func (pv *PageView) Overrides() map[string]any {
	return content.PathOverrides(pv.SourcePath)
}

// Resolve resolves the front matter with filename overrides. It can be
// called any number of times.
func (pv *PageView) Resolve(r *resolver.Resolver) (*resolver.Resolved, error) {
	return r.WithOverrides(pv.Overrides()).Resolve(pv.Raw)
}

// PermalinkTemplates returns the authored permalink templates in order.
func (pv *PageView) PermalinkTemplates() []string {
	switch v := pv.Raw["permalink"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// PermalinkTemplate returns the first authored permalink template.
func (pv *PageView) PermalinkTemplate() string {
	if t := pv.PermalinkTemplates(); len(t) > 0 {
		return t[0]
	}
	return ""
}

// Expansions expands the canonical (first) permalink template.
func (pv *PageView) Expansions(r *resolver.Resolver) ([]resolver.ExpandedValue, error) {
	fm := make(resolver.FrontMatter, len(pv.Raw))
	for k, v := range pv.Raw {
		fm[k] = v
	}
	fm["permalink"] = pv.PermalinkTemplate()
	return r.WithOverrides(pv.Overrides()).Expand(fm, "permalink")
}

// Variant is one output of a Repeater page view.
type Variant struct {
	Value     resolver.ExpandedValue
	Permalink string
	// Aliases are the alias permalinks and redirects paired with this
	// output, normalized.
	Aliases []string
	Fields  resolver.FrontMatter
}

// Variants resolves the page view once per expansion of its canonical
// permalink, with that expansion's iterators as overrides. Expansions with
// an iterator assignment seen before are skipped.
//
// An alias candidate is kept only when the variant covers its iterator
// assignment. When there are several variants, alias templates iterating
// arrays the canonical template does not reference have no single variant
// to point at and are dropped.
func (pv *PageView) Variants(r *resolver.Resolver) ([]Variant, error) {
	expanded, err := pv.Expansions(r)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(expanded))
	values := expanded[:0:0]
	for _, ev := range expanded {
		if !seen[ev.Key()] {
			seen[ev.Key()] = true
			values = append(values, ev)
		}
	}

	base := r.WithOverrides(pv.Overrides())
	out := make([]Variant, 0, len(values))
	for _, ev := range values {
		res, err := base.WithOverrides(ev.Iterators()).Resolve(pv.Raw)
		if err != nil {
			return nil, err
		}
		v := Variant{
			Value:     ev,
			Permalink: output.NormalizePermalink(ev.Evaluated()),
			Fields:    res.Fields,
		}
		if candidates := res.Expansions["permalink"]; len(candidates) > 1 {
			for _, alias := range candidates[1:] {
				if len(values) == 1 || ev.Covers(alias) {
					v.Aliases = append(v.Aliases, output.NormalizePermalink(alias.Evaluated()))
				}
			}
		}
		for _, alias := range res.Strings("redirects") {
			v.Aliases = append(v.Aliases, output.NormalizePermalink(alias))
		}
		v.Fields["permalink"] = v.Permalink
		out = append(out, v)
	}
	return out, nil
}

// BindItems binds a collection snapshot and stores the result in Items.
func (pv *PageView) BindItems(items []*content.Item, r *resolver.Resolver) []error {
	bound, failures := pv.Bind(items, r)
	pv.Items = bound
	return failures
}

// Bind binds a collection snapshot using the page view's permalink as the
// item default, leaving pv untouched. Items that fail to resolve are
// returned as errors and left out.
func (pv *PageView) Bind(items []*content.Item, r *resolver.Resolver) ([]*content.Item, []error) {
	var defaults resolver.FrontMatter
	if p, ok := pv.Raw["permalink"]; ok && p != nil {
		defaults = resolver.FrontMatter{"permalink": p}
	}

	bound := make([]*content.Item, 0, len(items))
	var failures []error
	for _, it := range items {
		b, err := content.Bind(it, defaults, r)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		bound = append(bound, b)
	}
	return bound, failures
}

// KeyLine returns the file line of the top-level front matter key that
// contextKey (e.g. "author.name" or "tags[1]") starts with, or 0.
func (pv *PageView) KeyLine(contextKey string) int {
	top := contextKey
	if i := strings.IndexAny(top, ".["); i >= 0 {
		top = top[:i]
	}
	return pv.keyLines[top]
}

// IsDraft reports the draft flag of the page view.
func (pv *PageView) IsDraft() bool {
	return cast.ToBool(pv.Raw["draft"])
}

// DefaultPermalink is used when the front matter has no permalink.
//
//	index.html      -> /
//	about.html      -> /about/
//	docs/index.md   -> /docs/
//	docs/setup.md   -> /docs/setup/
func (pv *PageView) DefaultPermalink() string {
	dir := path.Dir(pv.SourcePath)
	if dir == "." {
		dir = ""
	}
	base := cast.ToString(pv.Overrides()["basename"])
	if base != "index" {
		dir = path.Join(dir, base)
	}
	if dir == "" {
		return "/"
	}
	return "/" + strings.Trim(dir, "/") + "/"
}

// TargetFile maps a permalink to its output path.
func (pv *PageView) TargetFile(permalink string) string {
	return output.TargetPath(permalink)
}
