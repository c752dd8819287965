package compiler

import (
	"sort"
	"sync"

	"git.home.luguber.info/inful/pagebuilder/internal/output"
)

// RedirectTable maps aliases to canonical permalinks. It is safe for
// concurrent use. Registering an alias twice keeps the last target.
type RedirectTable struct {
	mu sync.Mutex
	m  map[string]string
}

// NewRedirectTable creates an empty table.
func NewRedirectTable() *RedirectTable {
	return &RedirectTable{m: make(map[string]string)}
}

// Add records from -> to. Both are normalized; self redirects are ignored.
// It reports whether the entry was recorded.
func (t *RedirectTable) Add(from, to string) bool {
	from = output.NormalizePermalink(from)
	to = output.NormalizePermalink(to)
	if from == "" || from == to {
		return false
	}
	t.mu.Lock()
	t.m[from] = to
	t.mu.Unlock()
	return true
}

// Len returns the number of aliases.
func (t *RedirectTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// Lookup returns the canonical permalink for alias.
func (t *RedirectTable) Lookup(alias string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	to, ok := t.m[output.NormalizePermalink(alias)]
	return to, ok
}

// Redirects returns the table sorted by alias.
func (t *RedirectTable) Redirects() []output.Redirect {
	t.mu.Lock()
	out := make([]output.Redirect, 0, len(t.m))
	for from, to := range t.m {
		out = append(out, output.Redirect{From: from, To: to})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// Reset removes every entry.
func (t *RedirectTable) Reset() {
	t.mu.Lock()
	t.m = make(map[string]string)
	t.mu.Unlock()
}
