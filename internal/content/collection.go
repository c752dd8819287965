package content

import (
	"sort"
)

// Collection is a read-only snapshot of items grouped by namespace.
type Collection struct {
	items map[string][]*Item
}

// NewCollection sorts each namespace by date (newest first) then path.
func NewCollection(byNamespace map[string][]*Item) *Collection {
	c := &Collection{items: make(map[string][]*Item, len(byNamespace))}
	for ns, items := range byNamespace {
		sorted := append([]*Item(nil), items...)
		SortItems(sorted)
		c.items[ns] = sorted
	}
	return c
}

// SortItems orders items by date descending, then by source path.
func SortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].Date(), items[j].Date()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return items[i].SourcePath < items[j].SourcePath
	})
}

// Items returns the items of namespace. The slice is a copy.
func (c *Collection) Items(namespace string) []*Item {
	if c == nil {
		return nil
	}
	return append([]*Item(nil), c.items[namespace]...)
}

// Namespaces returns the sorted namespace names.
func (c *Collection) Namespaces() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.items))
	for ns := range c.items {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of items across all namespaces.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, items := range c.items {
		n += len(items)
	}
	return n
}

// Context renders the collection for templates: namespace -> item contexts.
// Drafts are left out unless drafts is set.
func (c *Collection) Context(drafts bool) map[string]any {
	out := make(map[string]any)
	if c == nil {
		return out
	}
	for ns, items := range c.items {
		list := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if it.IsDraft() && !drafts {
				continue
			}
			list = append(list, it.Context())
		}
		out[ns] = list
	}
	return out
}
