package server

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/atomic"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/compiler"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/routes"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Config *config.Config
	// Fs holds the sources. Defaults to the OS filesystem.
	Fs afero.Fs
	// Registry backs /metrics when server.metrics is enabled.
	Registry *prometheus.Registry
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Server renders pages per request from the current site snapshot.
type Server struct {
	opts    Options
	cfg     *config.Config
	fs      afero.Fs
	logger  *slog.Logger
	cache   *SourceCache
	hub     *LiveReloadHub
	adapter *errors.HTTPErrorAdapter
	static  http.Handler

	version  atomic.Int64
	watchers atomic.Int32
	reloadMu sync.Mutex
	stamp    string

	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	site   *build.Site
	routes *routes.Mapper
	engine *compiler.Engine
	// err is the last failed reload; the previous site stays loaded.
	err error
}

// New creates a Server. Call Reload or Run to load the site.
func New(opts Options) *Server {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		cfg:     opts.Config,
		fs:      opts.Fs,
		logger:  opts.Logger,
		cache:   NewSourceCache(opts.Fs),
		hub:     NewLiveReloadHub(),
		adapter: errors.NewHTTPErrorAdapter(opts.Logger),
		static:  http.FileServer(afero.NewHttpFs(opts.Fs).Dir(opts.Config.OutputDir())),
	}
}

// Version returns the number of completed reloads.
func (s *Server) Version() int64 { return s.version.Load() }

// Hub returns the livereload hub.
func (s *Server) Hub() *LiveReloadHub { return s.hub }

// Reload loads a new site snapshot. On failure the previous snapshot keeps
// serving while every page shows the error.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	site, err := build.LoadSite(ctx, s.fs, s.cfg, s.logger)
	if err != nil {
		s.mu.Lock()
		next := &snapshot{err: err}
		if s.snap != nil {
			cp := *s.snap
			cp.err = err
			next = &cp
		}
		s.snap = next
		s.mu.Unlock()
		s.logger.Error("Site reload failed", logfields.Error(err))
		s.hub.Broadcast(strconv.FormatInt(s.version.Inc(), 10))
		return err
	}

	mapper, failures := site.Routes()
	for _, f := range append(append([]error(nil), site.Failures...), failures...) {
		s.logger.Warn("Document skipped", logfields.Error(f))
	}
	engine := site.Engine(build.EngineOptions{
		Writer:   output.NewMemoryWriter(),
		Recorder: s.opts.Recorder,
		Logger:   s.logger,
	})

	s.mu.Lock()
	s.snap = &snapshot{site: site, routes: mapper, engine: engine}
	s.mu.Unlock()
	s.cache.Reset()
	s.stamp, _ = sourceStamp(s.fs, s.cfg)

	v := s.version.Inc()
	s.logger.Info("Site reloaded",
		slog.Int64("version", v),
		slog.Int("routes", mapper.Len()),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	s.hub.Broadcast(strconv.FormatInt(v, 10))
	return nil
}

func (s *Server) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.Server.LiveReload {
		mux.Handle(LiveReloadPath, s.hub)
	}
	if s.cfg.Server.Metrics {
		mux.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	mux.HandleFunc("/", s.serve)
	return chain(s.logger, s.adapter)(mux)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	snap := s.current()
	if snap == nil {
		http.Error(w, "site not loaded", http.StatusServiceUnavailable)
		return
	}
	if snap.err != nil {
		s.errorPage(w, snap.err)
		return
	}

	p := snap.routes.StripBase(r.URL.Path)
	if to, ok := snap.routes.Redirect(p); ok {
		http.Redirect(w, r, snap.routes.WithBase(to), http.StatusMovedPermanently)
		return
	}
	if route, params, ok := snap.routes.Lookup(p); ok {
		if s.render(w, r, snap, route, params) {
			return
		}
	}
	s.static.ServeHTTP(w, r)
}

// render writes the page served by route. It returns false when the route
// has no output for the request so the static handler can answer.
func (s *Server) render(w http.ResponseWriter, r *http.Request, snap *snapshot, route *routes.Route, params map[string]string) bool {
	target := route.Target
	pv, err := s.cache.Fresh(snap.site.SourceFile(target), target, func() (*pageview.PageView, error) {
		return snap.site.Reload(target)
	})
	if err != nil {
		s.errorPage(w, compiler.PageError(target, err))
		return true
	}

	permalink := route.Permalink(params)
	if route.Item != nil {
		permalink = route.Item.Permalink()
	}
	body, ok, err := snap.engine.RenderPermalink(r.Context(), pv, permalink)
	if err != nil {
		s.errorPage(w, err)
		return true
	}
	if !ok {
		return false
	}

	file := output.TargetPath(permalink)
	ct := mime.TypeByExtension(path.Ext(file))
	if ct == "" {
		ct = "text/html; charset=utf-8"
	}
	out := []byte(body)
	if s.cfg.Server.LiveReload && isHTML(file) {
		out = InjectScript(out, LiveReloadScript)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(out)
	return true
}

var errorTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Build error</title></head>
<body>
<h1>Build error</h1>
{{ if .Path }}<p><code>{{ .Path }}{{ if .Line }}:{{ .Line }}{{ end }}</code></p>{{ end }}
<pre>{{ .Message }}</pre>
</body>
</html>
`))

func (s *Server) errorPage(w http.ResponseWriter, err error) {
	data := struct {
		Path    string
		Line    int
		Message string
	}{Message: err.Error()}
	if fe, ok := compiler.AsFileAwareError(err); ok {
		data.Path, data.Line, data.Message = fe.Path, fe.Line, fe.Err.Error()
	}

	status := s.adapter.StatusCodeFor(err)
	if status == http.StatusOK {
		status = http.StatusInternalServerError
	}
	var buf bytes.Buffer
	_ = errorTmpl.Execute(&buf, data)
	out := buf.Bytes()
	if s.cfg.Server.LiveReload {
		out = InjectScript(out, LiveReloadScript)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// Run loads the site and serves it until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil && stderrors.Is(err, context.Canceled) {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	stopWatch, err := s.Watch(ctx)
	if err != nil {
		return err
	}
	defer stopWatch()

	if s.cfg.Server.RescanInterval > 0 {
		sched, err := s.scheduleRescan(ctx, s.cfg.Server.RescanInterval)
		if err != nil {
			return err
		}
		defer func() { _ = sched.Shutdown() }()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Dev server listening", logfields.URL(fmt.Sprintf("http://%s/", addr)))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- errors.WrapError(err, errors.CategoryServer, "dev server failed").
				WithContext("addr", addr).
				Build()
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapError(err, errors.CategoryServer, "dev server shutdown failed").Build()
	}
	return nil
}

// scheduleRescan reloads the site periodically when the source stamp
// changed. It covers filesystems that do not deliver change events.
func (s *Server) scheduleRescan(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryServer, "failed to create scheduler").Build()
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.rescan(ctx) }),
		gocron.WithName("rescan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryServer, "failed to schedule rescan").Build()
	}
	sched.Start()
	return sched, nil
}

func (s *Server) rescan(ctx context.Context) {
	stamp, err := sourceStamp(s.fs, s.cfg)
	if err != nil {
		s.logger.Warn("Rescan failed", logfields.Error(err))
		return
	}
	s.reloadMu.Lock()
	unchanged := stamp == s.stamp
	s.reloadMu.Unlock()
	if unchanged {
		return
	}
	s.logger.Info("Sources changed, reloading")
	_ = s.Reload(ctx)
}
