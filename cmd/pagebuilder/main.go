package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagebuilder/cmd/pagebuilder/commands"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Logger: slog.Default()}
	parser := kong.Parse(cli,
		kong.Name("pagebuilder"),
		kong.Description("Static site builder for front-matter page views and collections."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run(cli)
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
