package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/notify"
	"git.home.luguber.info/inful/pagebuilder/internal/retry"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Override output.directory" type:"path"`
	Drafts      bool   `help:"Include draft page views and items"`
	Concurrency int    `short:"j" help:"Override build.concurrency"`
	Minify      bool   `help:"Minify HTML output"`
	NoClean     bool   `name:"no-clean" help:"Keep files already in the output directory"`
	MetricsFile string `name:"metrics-file" help:"Write build metrics in the Prometheus text format to this file" type:"path"`
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Drafts {
		cfg.Build.Drafts = true
	}
	if b.Concurrency > 0 {
		cfg.Build.Concurrency = b.Concurrency
	}
	if b.Minify {
		cfg.Build.Minify = true
	}
	if b.NoClean {
		cfg.Output.Clean = false
	}
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	opts := build.Options{Config: cfg, Logger: g.Logger, Notifier: notify.Noop{}}
	if history != nil {
		defer func() { _ = history.Close() }()
		opts.History = history
	}
	if cfg.Notify.NATSURL != "" {
		policy := retry.NewPolicy(retry.Backoff(cfg.Notify.RetryBackoff), cfg.Notify.RetryInitial, 0, cfg.Notify.MaxRetries)
		pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject, policy)
		if err != nil {
			// Notifications are optional; the build still runs.
			g.Logger.Warn("Build notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			defer pub.Close()
			opts.Notifier = pub
		}
	}
	var reg *prometheus.Registry
	if b.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		opts.Recorder = metrics.NewPrometheusRecorder(reg)
	}

	report, err := build.New(opts).Build(ctx)
	printReport(g, report)

	if reg != nil {
		if werr := prometheus.WriteToTextfile(b.MetricsFile, reg); werr != nil {
			g.Logger.Warn("Failed to write metrics file", logfields.Path(b.MetricsFile), logfields.Error(werr))
		}
	}
	return err
}

func printReport(g *Global, r *build.Report) {
	out := g.stdout()
	for _, f := range r.Failures {
		_, _ = fmt.Fprintf(out, "skipped %v\n", f)
	}
	_, _ = fmt.Fprintf(out, "%s: %d pages, %d files, %d redirects, %d skipped in %s\n",
		r.Outcome, r.Pages, len(r.Written), len(r.Redirects), len(r.Failures), r.Duration().Round(time.Millisecond))
}
