package output

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/inful/mdfp"
	"github.com/spf13/afero"
	"go.uber.org/atomic"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Writer persists rendered content at a target path relative to the output root.
type Writer interface {
	WriteFile(target string, content []byte) (string, error)
}

// FSWriter writes to an afero filesystem. Content whose fingerprint matches
// the previous write of the same target is not written again.
type FSWriter struct {
	fs   afero.Fs
	root string

	mu           sync.Mutex
	fingerprints map[string]string

	written atomic.Int64
	skipped atomic.Int64
}

// NewFSWriter creates a writer rooted at root.
func NewFSWriter(fs afero.Fs, root string) *FSWriter {
	return &FSWriter{fs: fs, root: root, fingerprints: make(map[string]string)}
}

// Root returns the output directory.
func (w *FSWriter) Root() string { return w.root }

// Fs returns the underlying filesystem.
func (w *FSWriter) Fs() afero.Fs { return w.fs }

// WriteFile writes content to target, creating intermediate directories.
func (w *FSWriter) WriteFile(target string, content []byte) (string, error) {
	full := filepath.Join(w.root, filepath.FromSlash(target))
	fp := mdfp.CalculateFingerprintFromParts("", string(content))

	w.mu.Lock()
	prev, seen := w.fingerprints[target]
	w.mu.Unlock()
	if seen && prev == fp {
		if exists, _ := afero.Exists(w.fs, full); exists {
			w.skipped.Inc()
			return full, nil
		}
	}

	if err := w.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.WrapError(err, errors.CategoryOutput, "failed to create output directory").
			Fatal().
			WithContext("target", target).
			Build()
	}
	if err := afero.WriteFile(w.fs, full, content, 0o644); err != nil {
		return "", errors.WrapError(err, errors.CategoryOutput, "failed to write output file").
			Fatal().
			WithContext("target", target).
			Build()
	}

	w.mu.Lock()
	w.fingerprints[target] = fp
	w.mu.Unlock()
	w.written.Inc()
	return full, nil
}

// Written returns the number of files physically written.
func (w *FSWriter) Written() int64 { return w.written.Load() }

// Skipped returns the number of writes avoided because content was unchanged.
func (w *FSWriter) Skipped() int64 { return w.skipped.Load() }

// Clean removes everything below the output root.
func (w *FSWriter) Clean() error {
	if err := w.fs.RemoveAll(w.root); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output directory").
			WithContext("path", w.root).
			Build()
	}
	w.mu.Lock()
	w.fingerprints = make(map[string]string)
	w.mu.Unlock()
	return w.fs.MkdirAll(w.root, 0o755)
}

// MemoryWriter keeps rendered files in memory. It backs the dev server and tests.
type MemoryWriter struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryWriter creates an empty MemoryWriter.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{files: make(map[string][]byte)}
}

func (m *MemoryWriter) WriteFile(target string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[target] = append([]byte(nil), content...)
	return target, nil
}

// Get returns the content written to target.
func (m *MemoryWriter) Get(target string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[target]
	return b, ok
}

// Files returns every target written so far, sorted.
func (m *MemoryWriter) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for k := range m.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
