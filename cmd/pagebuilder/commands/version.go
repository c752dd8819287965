package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

// VersionInfoCmd implements the 'version' command.
type VersionInfoCmd struct{}

func (v *VersionInfoCmd) Run(g *Global) error {
	_, err := fmt.Fprintln(g.stdout(), version.String())
	return err
}
