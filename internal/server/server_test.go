package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
)

const siteRoot = "/site"

func newTestSite(t *testing.T, mutate func(*config.Config)) (afero.Fs, *config.Config) {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"_layouts/default.html": "<html><body>{{ .content }}</body></html>",
		"_pages/about.html":     "---\ntitle: About\npermalink: /about/\nredirects: [/about-us/]\nlayout: default.html\n---\n<h1>{{ .title }}</h1>\n",
		"_pages/tags.html":      "---\ntags: [go, web]\npermalink: /tags/%tags/\n---\nTag {{ .tags }}\n",
		"_pages/feed.xml":       "---\npermalink: /feed.xml\n---\n<rss>{{ .site.title }}</rss>\n",
		"_pages/post.html":      "---\ncollection: posts\npermalink: /blog/%basename/\n---\n<h1>{{ .item.title }}</h1>\n",
		"_posts/hello.md":       "---\ntitle: Hello\n---\nHi\n",
		"_site/robots.txt":      "User-agent: *\n",
	}
	for name, src := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(siteRoot, name), []byte(src), 0o644))
	}
	cfg := config.Default()
	cfg.Root = siteRoot
	cfg.Site.Title = "Test"
	cfg.Source.Collections = map[string]string{"posts": "_posts"}
	if mutate != nil {
		mutate(cfg)
	}
	return fs, cfg
}

func newTestServer(t *testing.T, fs afero.Fs, cfg *config.Config) *Server {
	t.Helper()
	s := New(Options{Config: cfg, Fs: fs})
	require.NoError(t, s.Reload(context.Background()))
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_RendersRoutes(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	h := newTestServer(t, fs, cfg).Handler()

	rec := get(t, h, "/about/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>About</h1>")
	assert.Contains(t, rec.Body.String(), "__PAGEBUILDER_LR__")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = get(t, h, "/tags/web/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tag web")

	rec = get(t, h, "/blog/hello/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Hello</h1>")

	rec = get(t, h, "/feed.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<rss>Test</rss>\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "__PAGEBUILDER_LR__")
}

func TestServer_Redirects(t *testing.T) {
	fs, cfg := newTestSite(t, func(c *config.Config) { c.Site.BaseURL = "https://example.com/docs/" })
	h := newTestServer(t, fs, cfg).Handler()

	rec := get(t, h, "/docs/about-us/")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/docs/about/", rec.Header().Get("Location"))

	rec = get(t, h, "/docs/about/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StaticFallbackAndNotFound(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	h := newTestServer(t, fs, cfg).Handler()

	rec := get(t, h, "/robots.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User-agent: *\n", rec.Body.String())

	// The repeater pattern matches but no expansion produces this page.
	rec = get(t, h, "/tags/rust/")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/blog/missing/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ReReadsModifiedSource(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	s := newTestServer(t, fs, cfg)
	h := s.Handler()

	assert.Contains(t, get(t, h, "/about/").Body.String(), "<h1>About</h1>")
	assert.Equal(t, int64(0), s.cache.Reloads())

	file := filepath.Join(siteRoot, "_pages/about.html")
	require.NoError(t, afero.WriteFile(fs, file,
		[]byte("---\ntitle: Changed\npermalink: /about/\nlayout: default.html\n---\n<h1>{{ .title }}</h1>\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, fs.Chtimes(file, later, later))

	assert.Contains(t, get(t, h, "/about/").Body.String(), "<h1>Changed</h1>")
	assert.Contains(t, get(t, h, "/about/").Body.String(), "<h1>Changed</h1>")
	assert.Equal(t, int64(1), s.cache.Reloads())
}

func TestServer_RenderErrorPage(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	s := newTestServer(t, fs, cfg)

	file := filepath.Join(siteRoot, "_pages/about.html")
	require.NoError(t, afero.WriteFile(fs, file,
		[]byte("---\npermalink: /about/\n---\nok\n{{ if }}\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, fs.Chtimes(file, later, later))

	rec := get(t, s.Handler(), "/about/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Build error")
	assert.Contains(t, body, "about.html:5")
}

func TestServer_FailedReloadKeepsErrorVisible(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	s := newTestServer(t, fs, cfg)
	v := s.Version()

	require.NoError(t, afero.WriteFile(fs, filepath.Join(siteRoot, "_layouts/default.html"), []byte("{{ end }}"), 0o644))
	require.Error(t, s.Reload(context.Background()))
	assert.Equal(t, v+1, s.Version())

	rec := get(t, s.Handler(), "/about/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "default.html")

	require.NoError(t, afero.WriteFile(fs, filepath.Join(siteRoot, "_layouts/default.html"), []byte("{{ .content }}"), 0o644))
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/about/").Code)
}

func TestServer_Metrics(t *testing.T) {
	fs, cfg := newTestSite(t, func(c *config.Config) { c.Server.Metrics = true })
	reg := prometheus.NewRegistry()
	s := New(Options{Config: cfg, Fs: fs, Registry: reg, Recorder: metrics.NewPrometheusRecorder(reg)})
	require.NoError(t, s.Reload(context.Background()))
	h := s.Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/about/").Code)
	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pagebuilder_build_duration_seconds")
}

func TestServer_NotLoaded(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	rec := get(t, New(Options{Config: cfg, Fs: fs}).Handler(), "/about/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSourceStamp(t *testing.T) {
	fs, cfg := newTestSite(t, nil)
	first, err := sourceStamp(fs, cfg)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, filepath.Join(siteRoot, "_site/new.html"), []byte("x"), 0o644))
	same, err := sourceStamp(fs, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, same, "output files are not sources")

	require.NoError(t, afero.WriteFile(fs, filepath.Join(siteRoot, "_pages/new.html"), []byte("x"), 0o644))
	changed, err := sourceStamp(fs, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/site/_pages/a.html", false},
		{"/site/_pages/.a.html.swp", true},
		{"/site/_pages/a.html~", true},
		{"/site/_pages/#a.html#", true},
		{"/site/_site/index.html", true},
		{"/site/_site", true},
		{"/site/_site_other/x.html", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIgnoreEvent(tt.path, "/site/_site"), tt.path)
	}
}

func TestWatch_StopsWithContext(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	s := New(Options{Config: cfg, Fs: afero.NewOsFs()})

	ctx, cancel := context.WithCancel(context.Background())
	stop, err := s.Watch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), s.watchers.Load())

	cancel()
	assert.Eventually(t, func() bool { return s.watchers.Load() == 0 }, time.Second, 10*time.Millisecond)
	stop()
	assert.Equal(t, int32(0), s.watchers.Load())
}

func TestDebounce(t *testing.T) {
	calls := make(chan struct{}, 10)
	trigger, stop := debounce(20*time.Millisecond, func() { calls <- struct{}{} })
	defer stop()

	for range 5 {
		trigger()
	}
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("debounced function did not run")
	}
	select {
	case <-calls:
		t.Fatal("debounced function ran twice")
	case <-time.After(100 * time.Millisecond):
	}
}
