package server

import (
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

func loadPageView(t *testing.T, fs afero.Fs, file string) *pageview.PageView {
	t.Helper()
	pv, err := pageview.Load(fs, file, "about.html", resolver.New(resolver.Options{}))
	require.NoError(t, err)
	return pv
}

func TestSourceCache_UnchangedFileIsNotReloaded(t *testing.T) {
	fs := afero.NewMemMapFs()
	file := "/site/_pages/about.html"
	require.NoError(t, afero.WriteFile(fs, file, []byte("---\ntitle: A\n---\nbody\n"), 0o644))
	pv := loadPageView(t, fs, file)

	c := NewSourceCache(fs)
	got, err := c.Fresh(file, pv, func() (*pageview.PageView, error) {
		t.Fatal("reload must not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Same(t, pv, got)
	assert.Equal(t, int64(0), c.Reloads())
}

func TestSourceCache_ConcurrentRequestsReloadOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	file := "/site/_pages/about.html"
	require.NoError(t, afero.WriteFile(fs, file, []byte("---\ntitle: A\n---\nbody\n"), 0o644))
	stale := loadPageView(t, fs, file)

	require.NoError(t, afero.WriteFile(fs, file, []byte("---\ntitle: B\n---\nbody\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, fs.Chtimes(file, later, later))

	c := NewSourceCache(fs)
	var calls atomic.Int64
	reload := func() (*pageview.PageView, error) {
		calls.Inc()
		time.Sleep(10 * time.Millisecond)
		return loadPageView(t, fs, file), nil
	}

	var wg sync.WaitGroup
	results := make([]*pageview.PageView, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pv, err := c.Fresh(file, stale, reload)
			assert.NoError(t, err)
			results[i] = pv
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), c.Reloads())
	for _, pv := range results {
		assert.Same(t, results[0], pv)
	}
	assert.NotSame(t, stale, results[0])

	c.Reset()
	_, err := c.Fresh(file, results[0], reload)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "a page view read at the current mtime is reused")
}

func TestSourceCache_MissingFileKeepsPageView(t *testing.T) {
	fs := afero.NewMemMapFs()
	pv := &pageview.PageView{}
	got, err := NewSourceCache(fs).Fresh("/nope.html", pv, nil)
	require.NoError(t, err)
	assert.Same(t, pv, got)
}
