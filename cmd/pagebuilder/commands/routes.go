package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// RoutesCmd implements the 'routes' command.
type RoutesCmd struct {
	JSON   bool `help:"Print JSON instead of a table"`
	Drafts bool `help:"Include draft page views and items"`
}

type routeRow struct {
	Pattern string `json:"pattern"`
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Item    string `json:"item,omitempty"`
}

type redirectRow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (c *RoutesCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if c.Drafts {
		cfg.Build.Drafts = true
	}

	site, err := build.LoadSite(context.Background(), afero.NewOsFs(), cfg, g.Logger)
	if err != nil {
		return err
	}
	mapper, failures := site.Routes()
	for _, f := range append(append([]error(nil), site.Failures...), failures...) {
		g.Logger.Warn("Document skipped", logfields.Error(f))
	}

	routes := make([]routeRow, 0, mapper.Len())
	for _, r := range mapper.RouteMapping() {
		row := routeRow{Pattern: r.Pattern, Kind: r.Target.Kind().String(), Source: r.Target.SourcePath}
		if r.Item != nil {
			row.Item = r.Item.SourcePath
		}
		routes = append(routes, row)
	}
	redirects := make([]redirectRow, 0)
	for _, r := range mapper.RedirectMapping() {
		redirects = append(redirects, redirectRow{From: r.From, To: r.To})
	}

	out := g.stdout()
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Routes    []routeRow    `json:"routes"`
			Redirects []redirectRow `json:"redirects"`
		}{routes, redirects}); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode routes").Build()
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATTERN\tKIND\tSOURCE")
	for _, r := range routes {
		src := r.Source
		if r.Item != "" {
			src += " <- " + r.Item
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Pattern, r.Kind, src)
	}
	if len(redirects) > 0 {
		_, _ = fmt.Fprintln(tw, "\nREDIRECT\tTO\t")
		for _, r := range redirects {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t\n", r.From, r.To)
		}
	}
	return tw.Flush()
}
