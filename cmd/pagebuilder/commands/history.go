package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" default:"10" help:"Number of builds to show"`
	JSON  bool `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.ConfigError("build history is disabled").
			WithContext("field", "build.history").
			UserAction().
			Build()
	}
	defer func() { _ = store.Close() }()

	builds, err := eventstore.History(context.Background(), store, h.Limit)
	if err != nil {
		return err
	}

	out := g.stdout()
	if h.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(builds); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode history").Build()
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tPAGES\tFILES\tSKIPPED\tDURATION\tCOMMIT")
	for _, b := range builds {
		commit := b.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			b.BuildID, b.StartedAt.Local().Format(time.DateTime), b.Status,
			b.Pages, b.Files, b.PageErrors, b.Duration.Round(time.Millisecond), commit)
	}
	return tw.Flush()
}
