package routes

import (
	"net/url"
	"strings"
	"sync"

	"github.com/armon/go-radix"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

// Mapper is the route table of a site. It is safe for concurrent use.
type Mapper struct {
	basePath string
	resolver *resolver.Resolver

	mu        sync.RWMutex
	routes    *radix.Tree
	redirects *radix.Tree
}

// New creates a Mapper. baseURL may be a full URL or a path; only its path
// is stripped from lookups. r resolves the scalar references of permalink
// templates and may be nil.
func New(baseURL string, r *resolver.Resolver) *Mapper {
	if r == nil {
		r = resolver.New(resolver.Options{})
	}
	return &Mapper{
		basePath:  basePath(baseURL),
		resolver:  r,
		routes:    radix.New(),
		redirects: radix.New(),
	}
}

func basePath(baseURL string) string {
	p := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		p = u.Path
	}
	p = strings.TrimSuffix(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// BasePath returns the path prefix of the base URL without trailing slash.
func (m *Mapper) BasePath() string { return m.basePath }

// StripBase removes the base path from p. The result always starts with "/".
func (m *Mapper) StripBase(p string) string {
	if m.basePath != "" && (p == m.basePath || strings.HasPrefix(p, m.basePath+"/")) {
		p = strings.TrimPrefix(p, m.basePath)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// WithBase prefixes permalink with the base path.
func (m *Mapper) WithBase(permalink string) string {
	return m.basePath + output.NormalizePermalink(permalink)
}

// Register adds the routes and redirects of pv.
//
//   - Static: the resolved permalink.
//   - Repeater: the permalink pattern, array variables left as parameters.
//   - Dynamic: the page view's permalink pattern and every bound item's
//     permalink.
//
// Redirects are literal: every alias maps to the permalink of its output.
func (m *Mapper) Register(pv *pageview.PageView) error {
	switch pv.Kind() {
	case pageview.KindStatic:
		return m.registerStatic(pv)
	case pageview.KindRepeater:
		return m.registerRepeater(pv)
	case pageview.KindDynamic:
		m.registerDynamic(pv)
	}
	return nil
}

func (m *Mapper) registerStatic(pv *pageview.PageView) error {
	res, err := pv.Resolve(m.resolver)
	if err != nil {
		return err
	}
	candidates := res.Candidates("permalink")
	permalink := pv.DefaultPermalink()
	if len(candidates) > 0 {
		permalink = candidates[0]
	}
	permalink = output.NormalizePermalink(permalink)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes.Insert(permalink, newRoute(permalink, pv, nil))
	if len(candidates) > 1 {
		for _, alias := range candidates[1:] {
			m.addRedirect(alias, permalink)
		}
	}
	for _, alias := range res.Strings("redirects") {
		m.addRedirect(alias, permalink)
	}
	return nil
}

func (m *Mapper) registerRepeater(pv *pageview.PageView) error {
	templates := pv.PermalinkTemplates()
	if len(templates) == 0 {
		return nil
	}
	variants, err := pv.Variants(m.resolver)
	if err != nil {
		return err
	}
	r := m.resolver.WithOverrides(pv.Overrides())
	canonical := output.NormalizePermalink(ToPattern(r.Pattern(templates[0], pv.Raw)))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes.Insert(canonical, newRoute(canonical, pv, nil))
	for _, v := range variants {
		for _, alias := range v.Aliases {
			m.addRedirect(alias, v.Permalink)
		}
	}
	return nil
}

func (m *Mapper) registerDynamic(pv *pageview.PageView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Filename variables belong to the items here, so the page view's own
	// overrides are not applied.
	if tmpl := pv.PermalinkTemplate(); tmpl != "" {
		pattern := output.NormalizePermalink(ToPattern(m.resolver.Pattern(tmpl, pv.Raw)))
		m.routes.Insert(pattern, newRoute(pattern, pv, nil))
	}
	for _, it := range pv.Items {
		m.registerItem(pv, it)
	}
}

func (m *Mapper) registerItem(pv *pageview.PageView, it *content.Item) {
	if it.Permalink() == "" {
		return
	}
	m.routes.Insert(it.Permalink(), newRoute(it.Permalink(), pv, it))
	for _, alias := range it.Redirects() {
		m.addRedirect(alias, it.Permalink())
	}
}

// addRedirect must be called with mu held.
func (m *Mapper) addRedirect(from, to string) {
	from = output.NormalizePermalink(from)
	if from == to {
		return
	}
	m.redirects.Insert(from, to)
}

// AddRedirects records redirects computed elsewhere, e.g. by a build.
func (m *Mapper) AddRedirects(redirects []output.Redirect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range redirects {
		m.addRedirect(r.From, output.NormalizePermalink(r.To))
	}
}

// RouteMapping returns every route sorted by pattern.
func (m *Mapper) RouteMapping() []Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Route, 0, m.routes.Len())
	m.routes.Walk(func(_ string, v interface{}) bool {
		out = append(out, *v.(*Route))
		return false
	})
	return out
}

// RedirectMapping returns every redirect sorted by alias.
func (m *Mapper) RedirectMapping() []output.Redirect {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]output.Redirect, 0, m.redirects.Len())
	m.redirects.Walk(func(from string, v interface{}) bool {
		out = append(out, output.Redirect{From: from, To: v.(string)})
		return false
	})
	return out
}

// Lookup finds the first route, in pattern order, matching p after the base
// path is stripped.
func (m *Mapper) Lookup(p string) (*Route, map[string]string, bool) {
	p = m.StripBase(p)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		found  *Route
		params map[string]string
	)
	m.routes.Walk(func(_ string, v interface{}) bool {
		route := v.(*Route)
		if ps, ok := route.Match(p); ok {
			found, params = route, ps
			return true
		}
		return false
	})
	if found == nil {
		return nil, nil, false
	}
	return found, params, true
}

// Redirect returns the canonical permalink for an alias path. The trailing
// slash of p is optional.
func (m *Mapper) Redirect(p string) (string, bool) {
	p = m.StripBase(p)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if to, ok := m.redirects.Get(p); ok {
		return to.(string), true
	}
	if !strings.HasSuffix(p, "/") {
		if to, ok := m.redirects.Get(p + "/"); ok {
			return to.(string), true
		}
	}
	return "", false
}

// Len returns the number of routes.
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes.Len()
}
