package compiler

import (
	"context"
	"html/template"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/markdown"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
	"git.home.luguber.info/inful/pagebuilder/internal/templates"
)

// Options configures an Engine.
type Options struct {
	Resolver *resolver.Resolver
	Backend  templates.Backend
	// Writer receives rendered files. Defaults to an in-memory writer.
	Writer output.Writer
	// Global is the read-only template context shared by every render.
	Global map[string]any
	// Collection feeds Dynamic page views whose Items were not bound by the
	// caller.
	Collection *content.Collection
	Drafts     bool
	Hooks      []Hook
	// Concurrency bounds CompileAll. Values below 1 mean one worker.
	Concurrency int
	Recorder    metrics.Recorder
	Events      EventSink
	Logger      *slog.Logger
}

// Engine compiles page views. It is safe for concurrent use.
type Engine struct {
	opts      Options
	resolver  *resolver.Resolver
	writer    output.Writer
	recorder  metrics.Recorder
	events    EventSink
	logger    *slog.Logger
	redirects *RedirectTable
}

// New creates an Engine. Backend is required.
func New(opts Options) *Engine {
	e := &Engine{
		opts:      opts,
		resolver:  opts.Resolver,
		writer:    opts.Writer,
		recorder:  metrics.OrNoop(opts.Recorder),
		events:    opts.Events,
		logger:    opts.Logger,
		redirects: NewRedirectTable(),
	}
	if e.resolver == nil {
		e.resolver = resolver.New(resolver.Options{})
	}
	if e.writer == nil {
		e.writer = output.NewMemoryWriter()
	}
	if e.events == nil {
		e.events = noopSink{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Redirects returns every registered alias sorted by alias.
func (e *Engine) Redirects() []output.Redirect { return e.redirects.Redirects() }

// RedirectTable exposes the engine's redirect table.
func (e *Engine) RedirectTable() *RedirectTable { return e.redirects }

// Output is one planned render of a page view.
type Output struct {
	Permalink string
	Target    string
	// Redirects are the aliases forwarding to Permalink.
	Redirects []string
	Fields    resolver.FrontMatter
	// Item is set for Dynamic page views.
	Item *content.Item
	// Iterators is set for Repeater page views.
	Iterators map[string]any
}

// Plan resolves pv into the outputs a compile would produce without
// rendering anything. itemFailures holds Dynamic items that failed to bind;
// err is a failure of the page view itself.
func (e *Engine) Plan(pv *pageview.PageView) (outputs []Output, itemFailures []error, err error) {
	switch pv.Kind() {
	case pageview.KindStatic:
		out, err := e.planStatic(pv)
		if err != nil {
			return nil, nil, wrapPageError(pv, err)
		}
		return []Output{out}, nil, nil
	case pageview.KindDynamic:
		return e.planDynamic(pv)
	case pageview.KindRepeater:
		outs, err := e.planRepeater(pv)
		if err != nil {
			return nil, nil, wrapPageError(pv, err)
		}
		return outs, nil, nil
	default:
		return nil, nil, wrapPageError(pv, errors.InternalError("unknown page view kind").
			WithContext("kind", pv.Kind().String()).Build())
	}
}

func (e *Engine) planStatic(pv *pageview.PageView) (Output, error) {
	res, err := pv.Resolve(e.resolver)
	if err != nil {
		return Output{}, err
	}
	candidates := res.Candidates("permalink")
	permalink := pv.DefaultPermalink()
	if len(candidates) > 0 {
		permalink = candidates[0]
	} else if s := res.String("permalink"); s != "" {
		permalink = s
	}
	permalink = output.NormalizePermalink(permalink)

	var aliases []string
	if len(candidates) > 1 {
		aliases = append(aliases, candidates[1:]...)
	}
	aliases = append(aliases, res.Strings("redirects")...)

	res.Fields["permalink"] = permalink
	return Output{
		Permalink: permalink,
		Target:    pv.TargetFile(permalink),
		Redirects: normalizeAll(aliases),
		Fields:    res.Fields,
	}, nil
}

func (e *Engine) planDynamic(pv *pageview.PageView) ([]Output, []error, error) {
	res, err := pv.Resolve(e.resolver)
	if err != nil {
		return nil, nil, wrapPageError(pv, err)
	}

	items := pv.Items
	var failures []error
	if items == nil && e.opts.Collection != nil {
		var bindErrs []error
		items, bindErrs = pv.Bind(e.opts.Collection.Items(pv.Collection), e.resolver)
		for _, be := range bindErrs {
			failures = append(failures, wrapItemError(itemPath(be), be))
		}
	}

	outputs := make([]Output, 0, len(items))
	for _, it := range items {
		if it.IsDraft() && !e.opts.Drafts {
			continue
		}
		fields := make(resolver.FrontMatter, len(res.Fields))
		for k, v := range res.Fields {
			fields[k] = v
		}
		fields["permalink"] = it.Permalink()
		outputs = append(outputs, Output{
			Permalink: it.Permalink(),
			Target:    it.TargetFile(),
			Redirects: it.Redirects(),
			Fields:    fields,
			Item:      it,
		})
	}
	return outputs, failures, nil
}

func (e *Engine) planRepeater(pv *pageview.PageView) ([]Output, error) {
	variants, err := pv.Variants(e.resolver)
	if err != nil {
		return nil, err
	}
	outputs := make([]Output, 0, len(variants))
	for _, v := range variants {
		outputs = append(outputs, Output{
			Permalink: v.Permalink,
			Target:    pv.TargetFile(v.Permalink),
			Redirects: v.Aliases,
			Fields:    v.Fields,
			Iterators: v.Value.Iterators(),
		})
	}
	return outputs, nil
}

// Compile renders every output of pv, writes it and registers its redirects.
// It returns the written files. Dynamic items that fail to bind do not stop
// the remaining items; they are joined into the returned error.
func (e *Engine) Compile(ctx context.Context, pv *pageview.PageView) ([]string, error) {
	files, failures, err := e.compile(ctx, pv)
	if err != nil {
		return files, err
	}
	if len(failures) > 0 {
		return files, joinErrors(failures)
	}
	return files, nil
}

func (e *Engine) compile(ctx context.Context, pv *pageview.PageView) ([]string, []error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	kind := pv.Kind().String()
	if pv.IsDraft() && !e.opts.Drafts {
		e.logger.Debug("skipping draft page view", logfields.File(pv.SourcePath))
		return nil, nil, nil
	}

	start := time.Now()
	files, failures, err := e.compileOutputs(ctx, pv)
	elapsed := time.Since(start)
	e.recorder.ObserveCompileDuration(kind, elapsed)
	e.recorder.AddFilesWritten(len(files))

	ev := PageEvent{Source: pv.SourcePath, Kind: kind, Files: files, Duration: elapsed}
	if err != nil {
		ev.Err = err
		result := metrics.ResultFailed
		if IsFatal(err) {
			result = metrics.ResultFatal
		}
		e.recorder.IncPageResult(kind, result)
		e.events.PageFailed(ctx, ev)
		return files, failures, err
	}

	e.recorder.IncPageResult(kind, metrics.ResultSuccess)
	e.events.PageCompiled(ctx, ev)
	e.logger.Debug("compiled page view",
		logfields.File(pv.SourcePath),
		logfields.Kind(kind),
		logfields.Count(len(files)),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return files, failures, nil
}

func (e *Engine) compileOutputs(ctx context.Context, pv *pageview.PageView) ([]string, []error, error) {
	outputs, failures, err := e.Plan(pv)
	if err != nil {
		return nil, failures, err
	}

	files := make([]string, 0, len(outputs))
	for i := range outputs {
		if err := ctx.Err(); err != nil {
			return files, failures, err
		}
		out := &outputs[i]
		rendered, err := e.render(pv, out)
		if err != nil {
			if out.Item != nil && !IsFatal(err) {
				failures = append(failures, wrapItemError(out.Item.SourcePath, err))
				continue
			}
			return files, failures, wrapPageError(pv, err)
		}
		written, err := e.writer.WriteFile(out.Target, []byte(rendered))
		if err != nil {
			return files, failures, wrapPageError(pv, err)
		}
		files = append(files, written)
		for _, alias := range out.Redirects {
			e.redirects.Add(alias, out.Permalink)
		}
	}
	return files, failures, nil
}

// RenderPermalink renders the output of pv whose target file matches
// permalink, without writing it or registering redirects. ok is false when pv
// has no such output.
func (e *Engine) RenderPermalink(ctx context.Context, pv *pageview.PageView, permalink string) (rendered string, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	outputs, _, err := e.Plan(pv)
	if err != nil {
		return "", false, err
	}
	want := output.TargetPath(permalink)
	for i := range outputs {
		if outputs[i].Target != want {
			continue
		}
		rendered, err := e.render(pv, &outputs[i])
		if err != nil {
			return "", true, wrapPageError(pv, err)
		}
		return rendered, true, nil
	}
	return "", false, nil
}

// render executes the page body, converts Markdown sources and wraps the
// result in the layout named by the layout field.
func (e *Engine) render(pv *pageview.PageView, out *Output) (string, error) {
	layout := cast.ToString(out.Fields["layout"])
	if strings.TrimSpace(pv.Body) == "" && layout == "" {
		return "", errors.ContentError("no renderable body").
			WithContext("file", pv.SourcePath).
			Build()
	}

	for _, h := range e.opts.Hooks {
		if h.BeforeRender != nil {
			h.BeforeRender(pv)
		}
	}

	ctx := e.context(out)
	body, err := e.opts.Backend.Render(pv.SourcePath, pv.Body, ctx)
	if err != nil {
		return "", err
	}
	if isMarkdown(pv.SourcePath) {
		if body, err = markdown.Convert([]byte(body)); err != nil {
			return "", errors.WrapError(err, errors.CategoryContent, "failed to convert markdown").
				WithContext("file", pv.SourcePath).
				Build()
		}
	}
	if layout != "" {
		ctx["content"] = template.HTML(body) //nolint:gosec // rendered from trusted site sources
		if body, err = e.opts.Backend.RenderLayout(layout, ctx); err != nil {
			return "", err
		}
	}

	for _, h := range e.opts.Hooks {
		if h.AfterRender != nil {
			body = h.AfterRender(pv, body)
		}
	}
	return body, nil
}

// context builds the flat render context: global values, then the resolved
// front matter, then page, item and iterators.
func (e *Engine) context(out *Output) map[string]any {
	ctx := make(map[string]any, len(e.opts.Global)+len(out.Fields)+4)
	for k, v := range e.opts.Global {
		ctx[k] = v
	}
	for k, v := range out.Fields {
		ctx[k] = v
	}
	ctx["page"] = out.Fields
	ctx["permalink"] = out.Permalink
	ctx["redirects"] = out.Redirects
	if out.Item != nil {
		ctx["item"] = out.Item.Context()
	}
	if out.Iterators != nil {
		ctx["iterators"] = out.Iterators
	}
	return ctx
}

func isMarkdown(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func normalizeAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, output.NormalizePermalink(s))
	}
	return out
}

// itemPath extracts the "file" context of a bind failure.
func itemPath(err error) string {
	if ce, ok := errors.AsClassified(err); ok {
		if f, ok := ce.Context().GetString("file"); ok {
			return f
		}
	}
	return ""
}

func sortedFiles(files []string) []string {
	out := append([]string(nil), files...)
	sort.Strings(out)
	return out
}
