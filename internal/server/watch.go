package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/inful/mdfp"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

const debounceWindow = 300 * time.Millisecond

// Watch reloads the site shortly after source files change. Watching stops
// when ctx is done or the returned function is called.
func (s *Server) Watch(ctx context.Context) (func(), error) {
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve site root").Build()
	}
	outDir, _ := filepath.Abs(s.cfg.OutputDir())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryServer, "failed to create file watcher").Build()
	}
	addDirsRecursive(watcher, root, outDir)

	trigger, stopDebounce := debounce(debounceWindow, func() {
		if err := s.Reload(ctx); err != nil {
			s.logger.Debug("Reload after change failed", logfields.Error(err))
		}
	})

	s.watchers.Inc()
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			stopDebounce()
			_ = watcher.Close()
			s.watchers.Dec()
		})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldIgnoreEvent(ev.Name, outDir) {
					continue
				}
				if ev.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						addDirsRecursive(watcher, ev.Name, outDir)
					}
				}
				s.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
				trigger()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("File watcher error", logfields.Error(err))
			}
		}
	}()

	return stop, nil
}

// debounce returns a trigger that runs fn once no trigger happened for window.
func debounce(window time.Duration, fn func()) (trigger func(), stop func()) {
	var mu sync.Mutex
	var timer *time.Timer
	stopped := false
	trigger = func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(window, fn)
	}
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
	}
	return trigger, stop
}

func addDirsRecursive(w *fsnotify.Watcher, root, outDir string) {
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p == outDir || (p != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			slog.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent filters output writes, hidden files and editor scratch files.
func shouldIgnoreEvent(p, outDir string) bool {
	if outDir != "" && (p == outDir || strings.HasPrefix(p, outDir+string(filepath.Separator))) {
		return true
	}
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") {
		return true
	}
	for _, suffix := range []string{"~", ".swp", ".swx", ".tmp"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// sourceStamp fingerprints the names, sizes and modification times of every
// source file outside the output directory.
func sourceStamp(fs afero.Fs, cfg *config.Config) (string, error) {
	outDir := filepath.Clean(cfg.OutputDir())
	var lines []string
	err := afero.Walk(fs, cfg.Root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if filepath.Clean(p) == outDir || (p != cfg.Root && strings.HasPrefix(info.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		lines = append(lines, p+"|"+strconv.FormatInt(info.Size(), 10)+"|"+strconv.FormatInt(info.ModTime().UnixNano(), 10))
		return nil
	})
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to scan sources").
			WithContext("path", cfg.Root).
			Build()
	}
	sort.Strings(lines)
	return mdfp.CalculateFingerprintFromParts("", strings.Join(lines, "\n")), nil
}
