package content

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
)

var markdownExt = map[string]bool{".md": true, ".markdown": true}

var contentExt = map[string]bool{".md": true, ".markdown": true, ".html": true, ".htm": true}

// Loader reads collection items from a source tree.
type Loader struct {
	fs       afero.Fs
	root     string
	ignore   []glob.Glob
	markdown *markdown.Converter
	logger   *slog.Logger
}

// NewLoader creates a Loader. Ignore patterns are matched against paths
// relative to root using '/' as separator.
func NewLoader(fs afero.Fs, root string, ignore []string, logger *slog.Logger) (*Loader, error) {
	globs, err := CompileIgnore(ignore)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fs, root: root, ignore: globs, markdown: markdown.Default(), logger: logger}, nil
}

// CompileIgnore compiles glob patterns.
func CompileIgnore(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid ignore pattern").
				WithContext("pattern", p).
				Build()
		}
		out = append(out, g)
	}
	return out, nil
}

// Ignored reports whether rel matches one of the ignore patterns or names a hidden file.
func Ignored(globs []glob.Glob, rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Load reads every collection. collections maps namespace to a directory
// relative to the source root. Documents that fail to parse are reported in
// failures and left out; only filesystem errors abort loading.
func (l *Loader) Load(ctx context.Context, collections map[string]string) (map[string][]*Item, []error, error) {
	byNamespace := make(map[string][]*Item, len(collections))
	var failures []error

	namespaces := make([]string, 0, len(collections))
	for ns := range collections {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		dir := filepath.Join(l.root, filepath.FromSlash(collections[ns]))
		items, fails, err := l.loadNamespace(ns, dir)
		if err != nil {
			return nil, nil, err
		}
		byNamespace[ns] = items
		failures = append(failures, fails...)
		l.logger.Debug("Loaded collection", logfields.Namespace(ns), logfields.Count(len(items)))
	}
	return byNamespace, failures, nil
}

func (l *Loader) loadNamespace(ns, dir string) ([]*Item, []error, error) {
	exists, err := afero.DirExists(l.fs, dir)
	if err != nil || !exists {
		return nil, nil, errors.NewError(errors.CategoryConfig, "collection directory not found").
			Fatal().
			WithContext("namespace", ns).
			WithContext("path", dir).
			Build()
	}

	var items []*Item
	var failures []error
	walkErr := afero.Walk(l.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(l.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if p != dir && Ignored(l.ignore, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if Ignored(l.ignore, rel) || !contentExt[strings.ToLower(path.Ext(rel))] {
			return nil
		}

		item, err := l.LoadItem(ns, p, rel, info)
		if err != nil {
			if errors.HasCategory(err, errors.CategoryFileSystem) {
				return err
			}
			failures = append(failures, err)
			l.logger.Warn("Skipping collection item", logfields.File(rel), logfields.Error(err))
			return nil
		}
		items = append(items, item)
		return nil
	})
	if walkErr != nil {
		return nil, nil, errors.WrapError(walkErr, errors.CategoryFileSystem, "failed to scan collection").
			WithContext("namespace", ns).
			Build()
	}
	return items, failures, nil
}

// LoadItem parses a single document. rel is the path reported in errors and
// used for filename variables.
func (l *Loader) LoadItem(ns, full, rel string, info os.FileInfo) (*Item, error) {
	doc, err := docmodel.ParseFile(l.fs, full, docmodel.Options{})
	if err != nil {
		return nil, withFile(err, rel)
	}
	fields, err := doc.Fields()
	if err != nil {
		return nil, withFile(err, rel)
	}

	body := doc.Body()
	html := string(body)
	if markdownExt[strings.ToLower(path.Ext(rel))] {
		html, err = l.markdown.Convert(body)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryContent, "failed to render markdown").
				WithContext("file", rel).
				Build()
		}
		if _, ok := fields["title"]; !ok {
			if title := markdown.Title(body); title != "" {
				fields["title"] = title
			}
		}
	}

	item := &Item{
		Namespace:  ns,
		SourcePath: rel,
		Raw:        fields,
		Body:       body,
		HTML:       html,
		LineOffset: doc.LineOffset(),
	}
	if info != nil {
		item.ModTime = info.ModTime()
	}
	return item, nil
}

func withFile(err error, rel string) error {
	if classified, ok := errors.AsClassified(err); ok {
		return classified.WithContext("file", rel)
	}
	return errors.WrapError(err, errors.CategoryContent, "failed to load document").
		WithContext("file", rel).
		Build()
}
