// Package metrics provides build and compile metrics for pagebuilder.
//
// Components receive a Recorder through their options. NoopRecorder is the
// default and does nothing, so callers never need nil checks:
//
//	engine := compiler.New(compiler.Options{Recorder: metrics.NoopRecorder{}})
//
// The dev server swaps in a PrometheusRecorder and exposes it on /metrics
// through HTTPHandler.
package metrics
