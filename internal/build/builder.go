package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/compiler"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/notify"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
)

// Options configures a Builder.
type Options struct {
	Config *config.Config
	// Fs holds the sources. Defaults to the OS filesystem.
	Fs afero.Fs
	// OutFs receives the output. Defaults to Fs.
	OutFs    afero.Fs
	Recorder metrics.Recorder
	// History persists build events when set.
	History  eventstore.Store
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Report describes one build.
type Report struct {
	BuildID   string
	Start     time.Time
	End       time.Time
	Pages     int
	Written   []string
	Redirects []output.Redirect
	// Failures are per-document failures that did not stop the build.
	Failures []error
	Outcome  metrics.BuildOutcomeLabel
	Commit   string
	Err      error
}

// Duration returns the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Builder runs full builds. Builds of one Builder must not overlap.
type Builder struct {
	opts     Options
	recorder metrics.Recorder
	notifier notify.Notifier
	logger   *slog.Logger
	writer   *output.FSWriter
}

// New creates a Builder.
func New(opts Options) *Builder {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.OutFs == nil {
		opts.OutFs = opts.Fs
	}
	b := &Builder{
		opts:     opts,
		recorder: metrics.OrNoop(opts.Recorder),
		notifier: opts.Notifier,
		logger:   opts.Logger,
		writer:   output.NewFSWriter(opts.OutFs, opts.Config.OutputDir()),
	}
	if b.notifier == nil {
		b.notifier = notify.Noop{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build loads the site and writes it. The returned report is never nil. The
// error is non-nil when the build was aborted: a fatal template, output or
// filesystem error, a configuration error or cancellation. Per-document
// failures only downgrade the outcome to "warning".
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := &Report{BuildID: uuid.NewString(), Start: time.Now()}
	logger := b.logger.With(logfields.BuildID(report.BuildID))
	cfg := b.opts.Config

	logger.Info("Build started", logfields.Path(cfg.Root))
	site, err := LoadSite(ctx, b.opts.Fs, cfg, logger)
	if site != nil && site.Git != nil {
		report.Commit = site.Git.Commit
	}
	b.record(ctx, logger, report.BuildID, eventstore.TypeBuildStarted, eventstore.BuildStartedPayload{
		Root:      cfg.Root,
		OutputDir: cfg.OutputDir(),
		Drafts:    cfg.Build.Drafts,
		Commit:    report.Commit,
	})
	if err != nil {
		return b.finish(ctx, logger, report, err)
	}
	report.Failures = append(report.Failures, site.Failures...)

	if cfg.Output.Clean {
		if err := b.writer.Clean(); err != nil {
			return b.finish(ctx, logger, report, err)
		}
	}

	engine := site.Engine(EngineOptions{
		Writer:   b.writer,
		Recorder: b.recorder,
		Events:   &historySink{builder: b, buildID: report.BuildID, logger: logger},
		Logger:   logger,
	})
	summary, err := engine.CompileAll(ctx, site.PageViews)
	if summary != nil {
		report.Pages = summary.Pages
		report.Written = append(report.Written, summary.Files...)
		report.Redirects = summary.Redirects
		report.Failures = append(report.Failures, summary.Failures...)
	}
	if err != nil {
		return b.finish(ctx, logger, report, err)
	}

	stubs := redirectStubs(summary.Redirects, summary.Files, b.writer.Root())
	n, err := output.WriteRedirects(b.writer, stubs)
	b.recorder.AddFilesWritten(n)
	for _, s := range stubs[:n] {
		report.Written = append(report.Written, stubPath(b.writer.Root(), s))
	}
	return b.finish(ctx, logger, report, err)
}

// redirectStubs drops redirects whose stub would overwrite a rendered page.
// written holds paths below root.
func redirectStubs(redirects []output.Redirect, written []string, root string) []output.Redirect {
	pages := make(map[string]bool, len(written))
	for _, f := range written {
		pages[f] = true
	}
	out := make([]output.Redirect, 0, len(redirects))
	for _, r := range redirects {
		if pages[stubPath(root, r)] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func stubPath(root string, r output.Redirect) string {
	return filepath.Join(root, filepath.FromSlash(output.TargetPath(r.From)))
}

func (b *Builder) finish(ctx context.Context, logger *slog.Logger, report *Report, err error) (*Report, error) {
	report.End = time.Now()
	report.Err = err
	switch {
	case err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		report.Outcome = metrics.BuildOutcomeCanceled
	case err != nil:
		report.Outcome = metrics.BuildOutcomeFailed
	case len(report.Failures) > 0:
		report.Outcome = metrics.BuildOutcomeWarning
	default:
		report.Outcome = metrics.BuildOutcomeSuccess
	}

	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(report.Outcome)

	failures := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, f.Error())
	}
	completed := eventstore.BuildCompletedPayload{
		Outcome:    string(report.Outcome),
		Pages:      report.Pages,
		Files:      len(report.Written),
		Redirects:  len(report.Redirects),
		Failures:   failures,
		DurationMS: report.Duration().Milliseconds(),
	}
	if err != nil {
		completed.Error = err.Error()
	}
	// Cancellation must not prevent the history entry from being written.
	bg := context.WithoutCancel(ctx)
	b.record(bg, logger, report.BuildID, eventstore.TypeBuildCompleted, completed)

	if nerr := b.notifier.BuildCompleted(bg, notify.BuildCompleted{
		BuildID:    report.BuildID,
		Outcome:    string(report.Outcome),
		Files:      len(report.Written),
		Redirects:  len(report.Redirects),
		Failures:   len(report.Failures),
		DurationMS: report.Duration().Milliseconds(),
		Commit:     report.Commit,
	}); nerr != nil {
		logger.Warn("Build notification failed", logfields.Error(nerr))
	}

	attrs := []any{
		slog.String("outcome", string(report.Outcome)),
		slog.Int("pages", report.Pages),
		slog.Int("files", len(report.Written)),
		slog.Int("redirects", len(report.Redirects)),
		slog.Int("failures", len(report.Failures)),
		logfields.DurationMS(float64(report.Duration().Microseconds()) / 1000),
	}
	if err != nil {
		logger.Error("Build failed", append(attrs, logfields.Error(err))...)
	} else {
		logger.Info("Build completed", attrs...)
	}
	return report, err
}

// record appends an event to the history store. History is best effort.
func (b *Builder) record(ctx context.Context, logger *slog.Logger, buildID, eventType string, payload any) {
	if b.opts.History == nil {
		return
	}
	var (
		ev  *eventstore.BaseEvent
		err error
	)
	switch p := payload.(type) {
	case eventstore.BuildStartedPayload:
		ev, err = eventstore.NewBuildStarted(buildID, p)
	case eventstore.BuildCompletedPayload:
		ev, err = eventstore.NewBuildCompleted(buildID, p)
	case eventstore.PagePayload:
		if eventType == eventstore.TypePageFailed {
			ev, err = eventstore.NewPageFailed(buildID, p)
		} else {
			ev, err = eventstore.NewPageCompiled(buildID, p)
		}
	}
	if err == nil && ev != nil {
		err = eventstore.Record(ctx, b.opts.History, ev)
	}
	if err != nil {
		logger.Warn("Failed to record build event", slog.String("type", eventType), logfields.Error(err))
	}
}

// historySink forwards page events to the history store.
type historySink struct {
	builder *Builder
	buildID string
	logger  *slog.Logger
}

func (h *historySink) PageCompiled(ctx context.Context, ev compiler.PageEvent) {
	h.builder.record(context.WithoutCancel(ctx), h.logger, h.buildID, eventstore.TypePageCompiled, pagePayload(ev))
}

func (h *historySink) PageFailed(ctx context.Context, ev compiler.PageEvent) {
	h.builder.record(context.WithoutCancel(ctx), h.logger, h.buildID, eventstore.TypePageFailed, pagePayload(ev))
}

func pagePayload(ev compiler.PageEvent) eventstore.PagePayload {
	p := eventstore.PagePayload{
		Source:     ev.Source,
		Kind:       ev.Kind,
		Files:      ev.Files,
		DurationMS: ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}
