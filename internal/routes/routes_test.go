package routes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/docmodel"
	"git.home.luguber.info/inful/pagebuilder/internal/output"
	"git.home.luguber.info/inful/pagebuilder/internal/pageview"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

func newPageView(t *testing.T, rel, src string) *pageview.PageView {
	t.Helper()
	doc, err := docmodel.Parse([]byte(src), docmodel.Options{})
	require.NoError(t, err)
	pv, err := pageview.New(doc, rel, resolver.New(resolver.Options{}))
	require.NoError(t, err)
	return pv
}

func TestToPattern(t *testing.T) {
	tests := map[string]string{
		"/blog/%year/%title/":  "/blog/{year}/{title}/",
		"/%{site.lang}/about/": "/{site_lang}/about/",
		"/about/":              "/about/",
		"/feed-%lang.xml":      "/feed-{lang}.xml",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToPattern(in), in)
	}
}

func TestRoute_LastSegmentMatchesSlashes(t *testing.T) {
	r := newRoute(ToPattern("/blog/%year/%title/"), nil, nil)
	assert.Equal(t, []string{"year", "title"}, r.Params)

	params, ok := r.Match("/blog/2016/hello/")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"year": "2016", "title": "hello"}, params)

	params, ok = r.Match("/blog/2016/a/b/c/")
	require.True(t, ok)
	assert.Equal(t, "a/b/c", params["title"])

	_, ok = r.Match("/blog/20/16/x/")
	assert.True(t, ok, "only the last parameter is relaxed, year takes one segment")

	_, ok = r.Match("/blog/2016/")
	assert.False(t, ok)
}

func TestRoute_InnerParameterStaysInSegment(t *testing.T) {
	r := newRoute("/{lang}/about/", nil, nil)
	_, ok := r.Match("/en/about/")
	assert.True(t, ok)
	_, ok = r.Match("/en/us/about/")
	assert.False(t, ok)
}

func TestRoute_Literal(t *testing.T) {
	r := Route{Pattern: "/feed.xml"}
	_, ok := r.Match("/feed.xml")
	assert.True(t, ok)
	_, ok = r.Match("/feedXxml")
	assert.False(t, ok, "dots are literal")
}

func TestMapper_Static(t *testing.T) {
	m := New("", nil)
	pv := newPageView(t, "about.html", "---\npermalink: [/about/, /who/]\nredirects: /about-us/\n---\nx")
	require.NoError(t, m.Register(pv))

	routes := m.RouteMapping()
	require.Len(t, routes, 1)
	assert.Equal(t, "/about/", routes[0].Pattern)
	assert.Same(t, pv, routes[0].Target)

	assert.Equal(t, []output.Redirect{
		{From: "/about-us/", To: "/about/"},
		{From: "/who/", To: "/about/"},
	}, m.RedirectMapping())
}

func TestMapper_StaticResolveError(t *testing.T) {
	m := New("", nil)
	pv := newPageView(t, "x.html", "---\npermalink: /%missing/\n---\nx")
	err := m.Register(pv)
	assert.ErrorIs(t, err, resolver.ErrUndefinedVariable)
}

func TestMapper_Repeater(t *testing.T) {
	m := New("", nil)
	pv := newPageView(t, "_pages/blog.html",
		"---\nstatus: [final, draft]\nsection: blog\npermalink: /%section/%status/\nredirects: [\"/old/%status/\"]\n---\nx")
	require.NoError(t, m.Register(pv))

	routes := m.RouteMapping()
	require.Len(t, routes, 1)
	assert.Equal(t, "/blog/{status}/", routes[0].Pattern)

	route, params, ok := m.Lookup("/blog/final/")
	require.True(t, ok)
	assert.Same(t, pv, route.Target)
	assert.Equal(t, "final", params["status"])
	assert.Equal(t, "/blog/final/", route.Permalink(params))

	to, ok := m.Redirect("/old/draft/")
	require.True(t, ok)
	assert.Equal(t, "/blog/draft/", to)
}

func TestMapper_RepeaterRedirectsAreLiteral(t *testing.T) {
	m := New("", nil)
	require.NoError(t, m.Register(newPageView(t, "_pages/status.html",
		"---\nstatus: [final, draft]\npermalink: /blog/%status/\nredirects: [\"/%status/\"]\n---\nx")))
	require.NoError(t, m.Register(newPageView(t, "_pages/about.html", "---\npermalink: /about/\n---\nx")))

	assert.Equal(t, []output.Redirect{
		{From: "/draft/", To: "/blog/draft/"},
		{From: "/final/", To: "/blog/final/"},
	}, m.RedirectMapping())

	_, ok := m.Redirect("/about/")
	assert.False(t, ok)
	route, _, ok := m.Lookup("/about/")
	require.True(t, ok)
	assert.Equal(t, "/about/", route.Pattern)

	to, ok := m.Redirect("/final")
	require.True(t, ok)
	assert.Equal(t, "/blog/final/", to)
}

func TestMapper_Dynamic(t *testing.T) {
	m := New("", nil)
	pv := newPageView(t, "_pages/post.html", "---\ncollection: posts\npermalink: /blog/%basename/\n---\nx")
	pv.BindItems([]*content.Item{
		{Namespace: "posts", SourcePath: "_posts/hello.md", Raw: resolver.FrontMatter{"redirects": "/p/hello/"}},
		{Namespace: "posts", SourcePath: "_posts/world.md", Raw: resolver.FrontMatter{}},
	}, resolver.New(resolver.Options{}))
	require.NoError(t, m.Register(pv))

	var patterns []string
	for _, r := range m.RouteMapping() {
		patterns = append(patterns, r.Pattern)
	}
	assert.Equal(t, []string{"/blog/hello/", "/blog/world/", "/blog/{basename}/"}, patterns)

	route, _, ok := m.Lookup("/blog/hello/")
	require.True(t, ok)
	require.NotNil(t, route.Item)
	assert.Equal(t, "_posts/hello.md", route.Item.SourcePath)

	to, ok := m.Redirect("/p/hello/")
	require.True(t, ok)
	assert.Equal(t, "/blog/hello/", to)
}

func TestMapper_SortedRegardlessOfInsertOrder(t *testing.T) {
	a := New("", nil)
	b := New("", nil)
	pvs := []*pageview.PageView{
		newPageView(t, "z.html", "---\npermalink: /z/\n---\nz"),
		newPageView(t, "a.html", "---\npermalink: /a/\n---\na"),
		newPageView(t, "m.html", "---\npermalink: /m/\n---\nm"),
	}
	for _, pv := range pvs {
		require.NoError(t, a.Register(pv))
	}
	for i := len(pvs) - 1; i >= 0; i-- {
		require.NoError(t, b.Register(pvs[i]))
	}
	patterns := func(m *Mapper) []string {
		var out []string
		for _, r := range m.RouteMapping() {
			out = append(out, r.Pattern)
		}
		return out
	}
	assert.Equal(t, []string{"/a/", "/m/", "/z/"}, patterns(a))
	assert.Equal(t, patterns(a), patterns(b))
}

func TestMapper_AmbiguousMatchFollowsSortOrder(t *testing.T) {
	m := New("", nil)
	require.NoError(t, m.Register(newPageView(t, "_pages/docs.html", "---\npath: [a, b]\npermalink: /docs/%path/\n---\nx")))
	require.NoError(t, m.Register(newPageView(t, "_pages/api.html", "---\npermalink: /docs/api/reference/\n---\nx")))

	route, _, ok := m.Lookup("/docs/api/reference/")
	require.True(t, ok)
	assert.Equal(t, "/docs/api/reference/", route.Pattern)

	route, params, ok := m.Lookup("/docs/guide/install/")
	require.True(t, ok)
	assert.Equal(t, "/docs/{path}/", route.Pattern)
	assert.Equal(t, "guide/install", params["path"])
}

func TestMapper_BaseURL(t *testing.T) {
	m := New("https://example.com/site/", nil)
	assert.Equal(t, "/site", m.BasePath())
	assert.Equal(t, "/about/", m.StripBase("/site/about/"))
	assert.Equal(t, "/", m.StripBase("/site"))
	assert.Equal(t, "/sitemap.xml", m.StripBase("/sitemap.xml"))
	assert.Equal(t, "/site/about/", m.WithBase("/about/"))

	require.NoError(t, m.Register(newPageView(t, "about.html", "---\npermalink: /about/\nredirects: /old/\n---\nx")))
	_, _, ok := m.Lookup("/site/about/")
	assert.True(t, ok)
	to, ok := m.Redirect("/site/old/")
	assert.True(t, ok)
	assert.Equal(t, "/about/", to)

	assert.Equal(t, "/docs", New("docs/", nil).BasePath())
	assert.Equal(t, "", New("https://example.com", nil).BasePath())
}

func TestMapper_AddRedirects(t *testing.T) {
	m := New("", nil)
	m.AddRedirects([]output.Redirect{{From: "/b/", To: "/x/"}, {From: "/a/", To: "/x/"}, {From: "/x/", To: "/x/"}})
	assert.Equal(t, []output.Redirect{{From: "/a/", To: "/x/"}, {From: "/b/", To: "/x/"}}, m.RedirectMapping())
}

func TestMapper_ConcurrentRegister(t *testing.T) {
	m := New("", nil)
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		pv := newPageView(t, name+".html", "---\nredirects: /old/"+name+"/\n---\n"+name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Register(pv))
			m.Lookup("/a/")
		}()
	}
	wg.Wait()
	assert.Equal(t, 6, m.Len())
	assert.Len(t, m.RedirectMapping(), 6)
}
