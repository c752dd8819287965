// Package config loads the pagebuilder site configuration.
//
// A site is configured by a YAML (pagebuilder.yaml) or TOML (pagebuilder.toml)
// file. Environment variables in the file are expanded after .env and
// .env.local next to the file are loaded.
package config

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config is the site configuration.
type Config struct {
	Site   SiteConfig   `mapstructure:"site"`
	Source SourceConfig `mapstructure:"source"`
	Output OutputConfig `mapstructure:"output"`
	Build  BuildConfig  `mapstructure:"build"`
	Server ServerConfig `mapstructure:"server"`
	Notify NotifyConfig `mapstructure:"notify"`

	// Root is the directory relative paths are resolved against, normally
	// the directory holding the configuration file.
	Root string `mapstructure:"-"`
}

// SiteConfig holds the values exposed to templates as site and to front
// matter as %{site.*}.
type SiteConfig struct {
	Title   string         `mapstructure:"title"`
	BaseURL string         `mapstructure:"base_url"`
	Params  map[string]any `mapstructure:"params"`
	// DataDirs hold YAML, TOML and JSON files exposed as %{data.<file>.*}.
	DataDirs []string `mapstructure:"data_dirs"`
}

// SourceConfig locates the site sources.
type SourceConfig struct {
	PageViews []string `mapstructure:"pageviews"`
	// Collections maps a namespace to the directory holding its items.
	Collections map[string]string `mapstructure:"collections"`
	Layouts     string            `mapstructure:"layouts"`
	// Ignore holds glob patterns matched against slash separated paths
	// relative to each source directory.
	Ignore []string `mapstructure:"ignore"`
}

// OutputConfig controls where files are written.
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	Clean     bool   `mapstructure:"clean"`
}

// BuildConfig tunes a build.
type BuildConfig struct {
	Drafts      bool      `mapstructure:"drafts"`
	Concurrency int       `mapstructure:"concurrency"`
	Minify      bool      `mapstructure:"minify"`
	GitInfo     bool      `mapstructure:"git_info"`
	History     string    `mapstructure:"history"`
	LogLevel    LogLevel  `mapstructure:"log_level"`
	LogFormat   LogFormat `mapstructure:"log_format"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	LiveReload bool   `mapstructure:"live_reload"`
	Metrics    bool   `mapstructure:"metrics"`
	// RescanInterval triggers periodic full reloads when positive.
	RescanInterval time.Duration `mapstructure:"rescan_interval"`
}

// NotifyConfig configures build notifications. Empty NATSURL disables them.
type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
	// Failed publishes are retried MaxRetries times with RetryBackoff
	// (fixed, linear or exponential) delays starting at RetryInitial.
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff string        `mapstructure:"retry_backoff"`
	RetryInitial time.Duration `mapstructure:"retry_initial"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			Title:  "My Site",
			Params: map[string]any{},
		},
		Source: SourceConfig{
			PageViews:   []string{"_pages"},
			Collections: map[string]string{},
			Layouts:     "_layouts",
		},
		Output: OutputConfig{
			Directory: "_site",
			Clean:     true,
		},
		Build: BuildConfig{
			Concurrency: runtime.NumCPU(),
			LogLevel:    LogLevelInfo,
			LogFormat:   LogFormatText,
		},
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       4000,
			LiveReload: true,
		},
		Notify: NotifyConfig{
			Subject:      "pagebuilder.builds",
			MaxRetries:   2,
			RetryBackoff: "exponential",
			RetryInitial: 500 * time.Millisecond,
		},
		Root: ".",
	}
}

// Path resolves p against Root. Absolute paths are returned unchanged.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// OutputDir returns the resolved output directory.
func (c *Config) OutputDir() string { return c.Path(c.Output.Directory) }
