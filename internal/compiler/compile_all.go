package compiler

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
)

// Summary reports a CompileAll run.
type Summary struct {
	Pages     int
	Files     []string
	Redirects []output.Redirect
	// Failures are per-document failures that did not stop the build.
	Failures []error
	Duration time.Duration
}

// Written returns the number of files written.
func (s *Summary) Written() int { return len(s.Files) }

// CompileAll compiles pvs in parallel. Per-document failures are collected in
// the summary. The first fatal failure cancels the run: compilations already
// in flight finish, no new one starts, and the failure is returned as a
// *FileAwareError together with the partial summary.
func (e *Engine) CompileAll(ctx context.Context, pvs []*pageview.PageView) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	limit := e.opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	for _, pv := range pvs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			files, failures, err := e.compile(gctx, pv)

			mu.Lock()
			defer mu.Unlock()
			summary.Files = append(summary.Files, files...)
			summary.Failures = append(summary.Failures, failures...)
			if err == nil {
				summary.Pages++
				return nil
			}
			if IsFatal(err) {
				return err
			}
			e.logger.Warn("page view failed",
				logfields.File(pv.SourcePath),
				logfields.Kind(pv.Kind().String()),
				logfields.Error(err))
			summary.Failures = append(summary.Failures, err)
			return nil
		})
	}

	err := g.Wait()
	summary.Files = sortedFiles(summary.Files)
	summary.Redirects = e.Redirects()
	summary.Duration = time.Since(start)
	e.recorder.SetRedirects(len(summary.Redirects))

	if err == nil {
		err = ctx.Err()
	}
	return summary, err
}

func joinErrors(errs []error) error {
	return stderrors.Join(errs...)
}
