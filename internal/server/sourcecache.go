package server

import (
	"sync"
	"time"

	"github.com/BurntSushi/locker"
	"github.com/spf13/afero"
	"go.uber.org/atomic"

	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
)

// SourceCache remembers the last-modified time of every page view source
// served so far. A request for a page view whose file changed on disk
// re-reads it once; concurrent requests for the same path wait for that
// read instead of repeating it.
type SourceCache struct {
	fs    afero.Fs
	locks *locker.Locker

	mu      sync.RWMutex
	entries map[string]cacheEntry

	reloads atomic.Int64
}

type cacheEntry struct {
	modTime time.Time
	pv      *pageview.PageView
}

// NewSourceCache creates an empty cache over fs.
func NewSourceCache(fs afero.Fs) *SourceCache {
	return &SourceCache{fs: fs, locks: locker.NewLocker(), entries: make(map[string]cacheEntry)}
}

// Fresh returns the current version of pv, whose source is file. reload
// re-reads the source when its modification time moved past the one seen
// last. When the file cannot be stat'ed pv is returned unchanged.
func (c *SourceCache) Fresh(file string, pv *pageview.PageView, reload func() (*pageview.PageView, error)) (*pageview.PageView, error) {
	if file == "" {
		return pv, nil
	}
	info, err := c.fs.Stat(file)
	if err != nil {
		return pv, nil
	}
	mod := info.ModTime()

	if cached, ok := c.lookup(file, mod); ok {
		return cached, nil
	}
	if pv.ModTime.Equal(mod) {
		c.store(file, mod, pv)
		return pv, nil
	}

	c.locks.Lock(file)
	defer c.locks.Unlock(file)
	if cached, ok := c.lookup(file, mod); ok {
		return cached, nil
	}

	fresh, err := reload()
	if err != nil {
		return nil, err
	}
	c.reloads.Inc()
	c.store(file, mod, fresh)
	return fresh, nil
}

func (c *SourceCache) lookup(file string, mod time.Time) (*pageview.PageView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[file]
	if !ok || !e.modTime.Equal(mod) {
		return nil, false
	}
	return e.pv, true
}

func (c *SourceCache) store(file string, mod time.Time, pv *pageview.PageView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[file] = cacheEntry{modTime: mod, pv: pv}
}

// Reset forgets every entry. Called when a new site snapshot replaces the
// page views the entries were derived from.
func (c *SourceCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Reloads returns the number of sources re-read.
func (c *SourceCache) Reloads() int64 { return c.reloads.Load() }
