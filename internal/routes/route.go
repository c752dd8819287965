package routes

import (
	"regexp"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
)

// Route associates a pattern with what serves it. Item is set when a
// collection item is served by its Dynamic page view Target.
type Route struct {
	Pattern string
	Params  []string
	Target  *pageview.PageView
	Item    *content.Item

	re *regexp.Regexp
}

func newRoute(pattern string, target *pageview.PageView, item *content.Item) *Route {
	re, params := compile(pattern)
	return &Route{Pattern: pattern, Params: params, Target: target, Item: item, re: re}
}

// Match reports whether path matches the route and returns the parameter
// values.
func (r *Route) Match(path string) (map[string]string, bool) {
	re, names := r.re, r.Params
	if re == nil {
		re, names = compile(r.Pattern)
	}
	m := re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(names))
	for i, name := range names {
		params[name] = m[i+1]
	}
	return params, true
}

// Permalink returns the permalink served for the given parameter values.
func (r *Route) Permalink(params map[string]string) string {
	return output.NormalizePermalink(expand(r.Pattern, params))
}
