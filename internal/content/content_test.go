package content

import (
	"context"
	"html/template"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/resolver"
)

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
}

func newSite(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/site/_posts/2016-01-26-hello.md", "---\ntitle: Hello\ndate: 2016-01-26\n---\n# Hello\n\nFirst post.\n")
	writeFile(t, fs, "/site/_posts/2017-03-01-second.md", "---\ntitle: Second\ndate: 2017-03-01\nredirects: [/old/second/]\n---\nSecond post.\n")
	writeFile(t, fs, "/site/_posts/wip.md", "---\ntitle: WIP\ndraft: true\ndate: 2015-01-01\n---\nnot yet\n")
	writeFile(t, fs, "/site/_posts/notes.txt", "ignored by extension")
	writeFile(t, fs, "/site/_posts/.hidden.md", "---\ntitle: hidden\n---\n")
	writeFile(t, fs, "/site/_posts/archive/old.md", "---\ntitle: Old\n---\nold\n")
	return fs
}

func TestLoader_Load(t *testing.T) {
	fs := newSite(t)
	l, err := NewLoader(fs, "/site", []string{"_posts/archive/**"}, nil)
	require.NoError(t, err)

	byNS, failures, err := l.Load(context.Background(), map[string]string{"posts": "_posts"})
	require.NoError(t, err)
	assert.Empty(t, failures)

	items := byNS["posts"]
	require.Len(t, items, 3)
	paths := make([]string, 0, len(items))
	for _, it := range items {
		paths = append(paths, it.SourcePath)
		assert.Equal(t, "posts", it.Namespace)
	}
	assert.ElementsMatch(t, []string{
		"_posts/2016-01-26-hello.md",
		"_posts/2017-03-01-second.md",
		"_posts/wip.md",
	}, paths)
}

func TestLoader_ItemContent(t *testing.T) {
	fs := newSite(t)
	l, err := NewLoader(fs, "/site", nil, nil)
	require.NoError(t, err)

	item, err := l.LoadItem("posts", "/site/_posts/2016-01-26-hello.md", "_posts/2016-01-26-hello.md", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", item.Raw["title"])
	assert.Contains(t, item.HTML, "<p>First post.</p>")
	assert.Equal(t, 4, item.LineOffset)
}

func TestLoader_TitleFromHeading(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/site/_docs/intro.md", "---\nweight: 1\n---\n# Getting started\n")
	l, err := NewLoader(fs, "/site", nil, nil)
	require.NoError(t, err)

	item, err := l.LoadItem("docs", "/site/_docs/intro.md", "_docs/intro.md", nil)
	require.NoError(t, err)
	assert.Equal(t, "Getting started", item.Raw["title"])
}

func TestLoader_BrokenDocumentIsReported(t *testing.T) {
	fs := newSite(t)
	writeFile(t, fs, "/site/_posts/broken.md", "---\ntitle: [oops\n---\nbody\n")
	l, err := NewLoader(fs, "/site", []string{"_posts/archive/**"}, nil)
	require.NoError(t, err)

	byNS, failures, err := l.Load(context.Background(), map[string]string{"posts": "_posts"})
	require.NoError(t, err)
	assert.Len(t, byNS["posts"], 3)
	require.Len(t, failures, 1)

	classified, ok := errors.AsClassified(failures[0])
	require.True(t, ok)
	file, _ := classified.Context().GetString("file")
	assert.Equal(t, "_posts/broken.md", file)
}

func TestLoader_MissingCollectionDirectory(t *testing.T) {
	l, err := NewLoader(afero.NewMemMapFs(), "/site", nil, nil)
	require.NoError(t, err)
	_, _, err = l.Load(context.Background(), map[string]string{"posts": "_posts"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestNewLoader_InvalidPattern(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), "/site", []string{"[unclosed"}, nil)
	require.Error(t, err)
}

func TestBind(t *testing.T) {
	item := &Item{
		Namespace:  "posts",
		SourcePath: "_posts/2017-03-01-second.md",
		Raw: resolver.FrontMatter{
			"title":     "Second",
			"date":      "2017-03-01",
			"redirects": []any{"/old/%basename/"},
		},
	}
	defaults := resolver.FrontMatter{"permalink": "/blog/%year/%basename/"}

	bound, err := Bind(item, defaults, resolver.New(resolver.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "/blog/2017/2017-03-01-second/", bound.Permalink())
	assert.Equal(t, []string{"/old/2017-03-01-second/"}, bound.Redirects())
	assert.Equal(t, "blog/2017/2017-03-01-second/index.html", bound.TargetFile())
	assert.Equal(t, "/blog/2017/2017-03-01-second/", bound.Fields["permalink"])

	// The original item is untouched.
	assert.Empty(t, item.Permalink())
	assert.Nil(t, item.Fields)
}

func TestBind_ItemPermalinkWinsAndAliases(t *testing.T) {
	item := &Item{
		Namespace:  "posts",
		SourcePath: "_posts/a.md",
		Raw:        resolver.FrontMatter{"permalink": []any{"/custom/", "/alias/"}},
	}
	bound, err := Bind(item, resolver.FrontMatter{"permalink": "/blog/%basename/"}, resolver.New(resolver.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "/custom/", bound.Permalink())
	assert.Equal(t, []string{"/alias/"}, bound.Redirects())
}

func TestBind_DefaultPermalink(t *testing.T) {
	item := &Item{Namespace: "docs", SourcePath: "_docs/intro.md", Raw: resolver.FrontMatter{}}
	bound, err := Bind(item, nil, resolver.New(resolver.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "/docs/intro/", bound.Permalink())
}

func TestBind_UndefinedVariable(t *testing.T) {
	item := &Item{Namespace: "posts", SourcePath: "_posts/a.md", Raw: resolver.FrontMatter{}}
	_, err := Bind(item, resolver.FrontMatter{"permalink": "/blog/%category/"}, resolver.New(resolver.Options{}))
	assert.ErrorIs(t, err, resolver.ErrUndefinedVariable)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	file, _ := ce.Context().GetString("file")
	assert.Equal(t, "_posts/a.md", file)
}

func TestItem_DraftAndContext(t *testing.T) {
	item := &Item{
		Namespace:  "posts",
		SourcePath: "_posts/wip.md",
		Raw:        resolver.FrontMatter{"draft": true},
		HTML:       "<p>x</p>",
	}
	assert.True(t, item.IsDraft())

	ctx := item.Context()
	assert.Equal(t, template.HTML("<p>x</p>"), ctx["content"])
	assert.Equal(t, "wip", ctx["title"])
	assert.Equal(t, "posts", ctx["namespace"])
}

func TestCollection_SortedAndFiltered(t *testing.T) {
	newer := &Item{Namespace: "posts", SourcePath: "b.md", Fields: resolver.FrontMatter{"date": "2020-01-01"}}
	older := &Item{Namespace: "posts", SourcePath: "a.md", Fields: resolver.FrontMatter{"date": "2019-01-01"}}
	draft := &Item{Namespace: "posts", SourcePath: "c.md", Fields: resolver.FrontMatter{"date": "2021-01-01", "draft": true}}
	undated := &Item{Namespace: "posts", SourcePath: "0.md", Fields: resolver.FrontMatter{}}

	c := NewCollection(map[string][]*Item{"posts": {older, undated, draft, newer}})
	items := c.Items("posts")
	require.Len(t, items, 4)
	assert.Equal(t, []string{"c.md", "b.md", "a.md", "0.md"}, []string{
		items[0].SourcePath, items[1].SourcePath, items[2].SourcePath, items[3].SourcePath,
	})
	assert.Equal(t, []string{"posts"}, c.Namespaces())
	assert.Equal(t, 4, c.Len())

	ctx := c.Context(false)
	assert.Len(t, ctx["posts"], 3)
	ctx = c.Context(true)
	assert.Len(t, ctx["posts"], 4)

	// Mutating the returned slice does not affect the snapshot.
	items[0] = nil
	assert.NotNil(t, c.Items("posts")[0])
}

func TestPathOverrides(t *testing.T) {
	assert.Equal(t, map[string]any{
		"basename": "2016-01-26-hello",
		"filename": "2016-01-26-hello.md",
	}, PathOverrides("_posts/2016-01-26-hello.md"))
}
