package build

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/compiler"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/gitinfo"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
	"git.home.luguber.info/inful/pagebuilder/internal/routes"
	"git.home.luguber.info/inful/pagebuilder/internal/templates"
)

var pageViewExt = map[string]bool{
	".html": true, ".htm": true, ".md": true, ".markdown": true,
	".xml": true, ".txt": true, ".json": true,
}

// Site is an immutable snapshot of everything a build reads from the source
// tree. The dev server swaps whole snapshots on reload.
type Site struct {
	Config     *config.Config
	Fs         afero.Fs
	Resolver   *resolver.Resolver
	Backend    *templates.HTMLBackend
	Collection *content.Collection
	PageViews  []*pageview.PageView
	// Global is the template context shared by every page.
	Global map[string]any
	Git    *gitinfo.Info
	// Failures are per-document load failures; the documents are left out.
	Failures []error
	LoadedAt time.Time

	files map[*pageview.PageView]string
}

// LoadSite reads the site described by cfg from fs. Per-document failures
// are collected in Site.Failures; configuration, layout and filesystem
// errors abort loading.
func LoadSite(ctx context.Context, fs afero.Fs, cfg *config.Config, logger *slog.Logger) (*Site, error) {
	if logger == nil {
		logger = slog.Default()
	}
	site := &Site{Config: cfg, Fs: fs, LoadedAt: time.Now()}

	dataDirs := make([]string, 0, len(cfg.Site.DataDirs))
	for _, d := range cfg.Site.DataDirs {
		dataDirs = append(dataDirs, cfg.Path(d))
	}
	data, err := LoadData(fs, dataDirs)
	if err != nil {
		return nil, err
	}

	if cfg.Build.GitInfo {
		info, gerr := gitinfo.Read(cfg.Root)
		if gerr != nil {
			logger.Warn("Git information unavailable", logfields.Path(cfg.Root), logfields.Error(gerr))
		} else {
			site.Git = info
		}
	}

	// The collections entry is filled in once items are bound; the
	// resolver shares the map.
	scope := resolver.Scope{
		"site": siteScope(cfg),
		"data": data,
		"git":  site.Git.Scope(),
	}
	site.Resolver = resolver.New(resolver.Options{Complex: scope})

	loader, err := content.NewLoader(fs, cfg.Root, cfg.Source.Ignore, logger)
	if err != nil {
		return nil, err
	}
	byNamespace, failures, err := loader.Load(ctx, cfg.Source.Collections)
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		site.Failures = append(site.Failures, compiler.DocumentError(f))
	}
	site.Collection = content.NewCollection(byNamespace)

	pvs, files, failures, err := loadPageViews(ctx, fs, cfg, site.Resolver, logger)
	if err != nil {
		return nil, err
	}
	site.Failures = append(site.Failures, failures...)
	site.PageViews = pvs
	site.files = files

	bound := site.bindCollections()
	scope["collections"] = content.NewCollection(bound).Context(cfg.Build.Drafts)

	site.Backend, err = templates.NewHTMLBackend(templates.Options{
		Fs:         fs,
		LayoutsDir: cfg.Path(cfg.Source.Layouts),
		BaseURL:    cfg.Site.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	site.Global = map[string]any{
		"site":        scope["site"],
		"data":        data,
		"git":         scope["git"],
		"collections": scope["collections"],
	}

	logger.Info("Site loaded",
		slog.Int("pageviews", len(site.PageViews)),
		slog.Int("items", site.Collection.Len()),
		slog.Int("failures", len(site.Failures)))
	return site, nil
}

func siteScope(cfg *config.Config) map[string]any {
	params := make(map[string]any, len(cfg.Site.Params))
	for k, v := range cfg.Site.Params {
		params[k] = v
	}
	return map[string]any{
		"title":    cfg.Site.Title,
		"base_url": cfg.Site.BaseURL,
		"params":   params,
	}
}

// bindCollections binds the items of every Dynamic page view and returns the
// bound items per namespace. Namespaces no page view lists are bound with the
// default item permalink.
func (s *Site) bindCollections() map[string][]*content.Item {
	bound := make(map[string][]*content.Item)
	for _, pv := range s.PageViews {
		if pv.Kind() != pageview.KindDynamic {
			continue
		}
		failures := pv.BindItems(s.Collection.Items(pv.Collection), s.Resolver)
		for _, f := range failures {
			s.Failures = append(s.Failures, compiler.DocumentError(f))
		}
		if _, seen := bound[pv.Collection]; !seen {
			bound[pv.Collection] = pv.Items
		}
	}
	for _, ns := range s.Collection.Namespaces() {
		if _, ok := bound[ns]; ok {
			continue
		}
		var items []*content.Item
		for _, it := range s.Collection.Items(ns) {
			b, err := content.Bind(it, nil, s.Resolver)
			if err != nil {
				s.Failures = append(s.Failures, compiler.DocumentError(err))
				continue
			}
			items = append(items, b)
		}
		bound[ns] = items
	}
	return bound
}

// SourceFile returns the path of the file pv was loaded from.
func (s *Site) SourceFile(pv *pageview.PageView) string {
	return s.files[pv]
}

// Reload re-reads the source of pv. Items of a Dynamic page view are bound
// against the snapshot's collection.
func (s *Site) Reload(pv *pageview.PageView) (*pageview.PageView, error) {
	fresh, err := pageview.Load(s.Fs, s.SourceFile(pv), pv.SourcePath, s.Resolver)
	if err != nil {
		return nil, err
	}
	if fresh.Kind() == pageview.KindDynamic {
		// Failures were reported when the snapshot was loaded.
		_ = fresh.BindItems(s.Collection.Items(fresh.Collection), s.Resolver)
	}
	return fresh, nil
}

func loadPageViews(ctx context.Context, fs afero.Fs, cfg *config.Config, r *resolver.Resolver, logger *slog.Logger) ([]*pageview.PageView, map[*pageview.PageView]string, []error, error) {
	ignore, err := content.CompileIgnore(cfg.Source.Ignore)
	if err != nil {
		return nil, nil, nil, err
	}

	var pvs []*pageview.PageView
	files := make(map[*pageview.PageView]string)
	var failures []error
	for _, d := range cfg.Source.PageViews {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		dir := cfg.Path(d)
		exists, err := afero.DirExists(fs, dir)
		if err != nil || !exists {
			return nil, nil, nil, errors.ConfigError("pageviews directory not found").
				WithContext("path", dir).
				Build()
		}

		walkErr := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			fromRoot, _ := filepath.Rel(cfg.Root, p)
			fromRoot = filepath.ToSlash(fromRoot)
			if info.IsDir() {
				if p != dir && content.Ignored(ignore, fromRoot) {
					return filepath.SkipDir
				}
				return nil
			}
			if content.Ignored(ignore, fromRoot) || !pageViewExt[strings.ToLower(path.Ext(p))] {
				return nil
			}

			rel, _ := filepath.Rel(dir, p)
			pv, err := pageview.Load(fs, p, filepath.ToSlash(rel), r)
			if err != nil {
				if compiler.IsFatal(err) {
					return err
				}
				failures = append(failures, compiler.DocumentError(err))
				logger.Warn("Skipping page view", logfields.File(fromRoot), logfields.Error(err))
				return nil
			}
			pvs = append(pvs, pv)
			files[pv] = p
			return nil
		})
		if walkErr != nil {
			return nil, nil, nil, errors.WrapError(walkErr, errors.CategoryFileSystem, "failed to scan page views").
				WithContext("path", dir).
				Build()
		}
	}
	sort.SliceStable(pvs, func(i, j int) bool { return pvs[i].SourcePath < pvs[j].SourcePath })
	return pvs, files, failures, nil
}

// EngineOptions are the per-use settings of an engine built from a Site.
type EngineOptions struct {
	Writer   output.Writer
	Recorder metrics.Recorder
	Events   compiler.EventSink
	Logger   *slog.Logger
}

// Engine returns a compiler engine over the snapshot.
func (s *Site) Engine(opts EngineOptions) *compiler.Engine {
	var hooks []compiler.Hook
	if s.Config.Build.Minify {
		hooks = append(hooks, compiler.MinifyHook(output.NewMinifier()))
	}
	return compiler.New(compiler.Options{
		Resolver:    s.Resolver,
		Backend:     s.Backend,
		Writer:      opts.Writer,
		Global:      s.Global,
		Collection:  s.Collection,
		Drafts:      s.Config.Build.Drafts,
		Hooks:       hooks,
		Concurrency: s.Config.Build.Concurrency,
		Recorder:    opts.Recorder,
		Events:      opts.Events,
		Logger:      opts.Logger,
	})
}

// Routes registers every page view in a new route table. Page views whose
// permalink cannot be resolved are reported and left out.
func (s *Site) Routes() (*routes.Mapper, []error) {
	m := routes.New(s.Config.Site.BaseURL, s.Resolver)
	var failures []error
	for _, pv := range s.PageViews {
		if pv.IsDraft() && !s.Config.Build.Drafts {
			continue
		}
		if err := m.Register(pv); err != nil {
			failures = append(failures, compiler.PageError(pv, err))
		}
	}
	return m, failures
}
