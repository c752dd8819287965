// Package commands implements the pagebuilder command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Global is passed to every command.
type Global struct {
	Logger *slog.Logger
	// Stdout receives command output. Defaults to os.Stdout.
	Stdout io.Writer
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition and global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (probes pagebuilder.yaml, .yml, .toml when empty)" type:"path"`
	Verbose   bool             `short:"v" help:"Enable debug logging"`
	LogFormat string           `name:"log-format" help:"Override build.log_format (text|json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build       BuildCmd       `cmd:"" default:"withargs" help:"Build the site into the output directory"`
	Serve       ServeCmd       `cmd:"" help:"Serve the site, rendering pages on request"`
	Routes      RoutesCmd      `cmd:"" help:"Print the route table and redirects"`
	History     HistoryCmd     `cmd:"" help:"Show recent builds from the build history"`
	VersionInfo VersionInfoCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply sets up logging once flags are parsed. Commands that load a
// configuration replace the logger with the configured one.
func (c *CLI) AfterApply(g *Global) error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	format := config.LogFormatText
	if c.LogFormat != "" {
		f, err := config.ParseLogFormat(c.LogFormat)
		if err != nil {
			return errors.ValidationError(err.Error()).Build()
		}
		format = f
	}
	g.Logger = config.NewLogger(os.Stderr, level, format)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads the configuration and applies the logging settings it
// carries. Command line flags take precedence.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if root.Verbose {
		cfg.Build.LogLevel = config.LogLevelDebug
	}
	if root.LogFormat != "" {
		if f, err := config.ParseLogFormat(root.LogFormat); err == nil {
			cfg.Build.LogFormat = f
		}
	}
	g.Logger = config.NewLogger(os.Stderr, cfg.Build.LogLevel, cfg.Build.LogFormat)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// openHistory opens the build history store configured by build.history.
// It returns nil when history is disabled.
func openHistory(cfg *config.Config) (*eventstore.SQLiteStore, error) {
	if cfg.Build.History == "" {
		return nil, nil
	}
	return eventstore.NewSQLiteStore(cfg.Path(cfg.Build.History))
}
