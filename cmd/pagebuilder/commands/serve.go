package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Host         string `help:"Override server.host"`
	Port         int    `short:"p" help:"Override server.port"`
	Drafts       bool   `help:"Include draft page views and items"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable the livereload stream and script injection"`
	Metrics      bool   `help:"Expose /metrics"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if s.Host != "" {
		cfg.Server.Host = s.Host
	}
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}
	if s.Drafts {
		cfg.Build.Drafts = true
	}
	if s.NoLiveReload {
		cfg.Server.LiveReload = false
	}
	if s.Metrics {
		cfg.Server.Metrics = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := server.New(server.Options{
		Config:   cfg,
		Registry: reg,
		Recorder: metrics.NewPrometheusRecorder(reg),
		Logger:   g.Logger,
	})
	return srv.Run(ctx)
}
