package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}

// ParseLogLevel accepts any case and surrounding whitespace.
func ParseLogLevel(raw string) (LogLevel, error) {
	if l, ok := logLevels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return l, nil
	}
	return "", fmt.Errorf("invalid log level %q, valid options: [debug error info warn]", raw)
}

// Slog maps the level to slog.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// ParseLogFormat accepts any case and surrounding whitespace.
func ParseLogFormat(raw string) (LogFormat, error) {
	switch LogFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case LogFormatJSON:
		return LogFormatJSON, nil
	case LogFormatText:
		return LogFormatText, nil
	}
	return "", fmt.Errorf("invalid log format %q, valid options: [json text]", raw)
}

// NewLogger builds a slog logger writing to w.
func NewLogger(w io.Writer, level LogLevel, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.Slog()}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
