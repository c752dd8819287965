package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyFile       = "file"
	KeyLine       = "line"
	KeyPermalink  = "permalink"
	KeyKind       = "kind"
	KeyTarget     = "target"
	KeyRoute      = "route"
	KeyNamespace  = "namespace"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Line(n int) slog.Attr             { return slog.Int(KeyLine, n) }
func Permalink(p string) slog.Attr     { return slog.String(KeyPermalink, p) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func Target(t string) slog.Attr        { return slog.String(KeyTarget, t) }
func Route(r string) slog.Attr         { return slog.String(KeyRoute, r) }
func Namespace(ns string) slog.Attr    { return slog.String(KeyNamespace, ns) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
