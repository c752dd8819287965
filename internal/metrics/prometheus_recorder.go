package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	compileDuration *prom.HistogramVec
	pageResults     *prom.CounterVec
	filesWritten    prom.Counter
	redirects       prom.Gauge
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		compileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pagebuilder",
			Name:      "page_compile_duration_seconds",
			Help:      "Duration of a single page view compilation",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagebuilder",
			Name:      "page_results_total",
			Help:      "Page view compile results by kind and outcome",
		}, []string{"kind", "result"}),
		filesWritten: prom.NewCounter(prom.CounterOpts{
			Namespace: "pagebuilder",
			Name:      "files_written_total",
			Help:      "Output files written",
		}),
		redirects: prom.NewGauge(prom.GaugeOpts{
			Namespace: "pagebuilder",
			Name:      "redirects",
			Help:      "Redirects registered by the last build",
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagebuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagebuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.compileDuration, pr.pageResults, pr.filesWritten, pr.redirects, pr.buildDuration, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) ObserveCompileDuration(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.compileDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(kind string, result ResultLabel) {
	if p == nil {
		return
	}
	p.pageResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) AddFilesWritten(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.filesWritten.Add(float64(n))
}

func (p *PrometheusRecorder) SetRedirects(n int) {
	if p == nil {
		return
	}
	p.redirects.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}
