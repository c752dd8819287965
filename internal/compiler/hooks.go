package compiler

import (
	"context"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
)

// Hook observes renders. Either function may be nil. AfterRender returns the
// content that is written instead of output.
type Hook struct {
	BeforeRender func(pv *pageview.PageView)
	AfterRender  func(pv *pageview.PageView, output string) string
}

// MinifyHook minifies rendered output by the media type of the page view's
// permalink (HTML when the permalink has no extension).
func MinifyHook(m *output.Minifier) Hook {
	return Hook{
		AfterRender: func(pv *pageview.PageView, out string) string {
			permalink := pv.PermalinkTemplate()
			if permalink == "" {
				permalink = pv.DefaultPermalink()
			}
			return m.Minify(pv.TargetFile(permalink), out)
		},
	}
}

// PageEvent describes the outcome of compiling one page view.
type PageEvent struct {
	Source   string
	Kind     string
	Files    []string
	Duration time.Duration
	Err      error
}

// EventSink receives page events, e.g. to persist build history.
type EventSink interface {
	PageCompiled(ctx context.Context, ev PageEvent)
	PageFailed(ctx context.Context, ev PageEvent)
}

type noopSink struct{}

func (noopSink) PageCompiled(context.Context, PageEvent) {}
func (noopSink) PageFailed(context.Context, PageEvent)   {}
