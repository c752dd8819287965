package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

const testConfig = `site:
  title: Test
  base_url: https://example.com/
source:
  collections:
    posts: _posts
build:
  concurrency: 2
  history: history.db
`

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pagebuilder.yaml":  testConfig,
		"_pages/index.html": "---\ntitle: Home\n---\n{{ range .collections.posts }}{{ .title }};{{ end }}\n",
		"_pages/about.html": "---\npermalink: /about/\nredirects: [/about-us/]\n---\nabout\n",
		"_pages/post.html":  "---\ncollection: posts\npermalink: /blog/%basename/\n---\n{{ .item.title }}\n",
		"_posts/hello.md":   "---\ntitle: Hello\n---\nhi\n",
	}
	for name, src := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{}
	g := &Global{Stdout: &out}
	parser, err := kong.New(cli, kong.Name("pagebuilder"), kong.Bind(g), kong.Vars{"version": "test"})
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run(cli)
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := writeSite(t)
	cfgPath := filepath.Join(dir, "pagebuilder.yaml")

	out, err := run(t, "--config", cfgPath, "build", "--metrics-file", filepath.Join(dir, "build.prom"))
	require.NoError(t, err)
	assert.Contains(t, out, "success: 3 pages, 4 files, 1 redirects, 0 skipped")

	index, err := os.ReadFile(filepath.Join(dir, "_site", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "Hello;\n", string(index))

	prom, err := os.ReadFile(filepath.Join(dir, "build.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `pagebuilder_build_outcomes_total{outcome="success"} 1`)
}

func TestBuildCommand_OutputOverride(t *testing.T) {
	dir := writeSite(t)
	outDir := filepath.Join(t.TempDir(), "public")

	_, err := run(t, "--config", filepath.Join(dir, "pagebuilder.yaml"), "build", "-o", outDir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "about", "index.html"))
	assert.NoError(t, err)
}

func TestRoutesCommand(t *testing.T) {
	dir := writeSite(t)

	out, err := run(t, "--config", filepath.Join(dir, "pagebuilder.yaml"), "routes", "--json")
	require.NoError(t, err)

	var got struct {
		Routes    []routeRow    `json:"routes"`
		Redirects []redirectRow `json:"redirects"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	patterns := make([]string, 0, len(got.Routes))
	for _, r := range got.Routes {
		patterns = append(patterns, r.Pattern)
	}
	assert.Contains(t, patterns, "/about/")
	assert.Contains(t, patterns, "/blog/hello/")
	assert.Equal(t, []redirectRow{{From: "/about-us/", To: "/about/"}}, got.Redirects)

	out, err = run(t, "--config", filepath.Join(dir, "pagebuilder.yaml"), "routes")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "PATTERN"))
	assert.Contains(t, out, "post.html <- _posts/hello.md")
}

func TestHistoryCommand(t *testing.T) {
	dir := writeSite(t)
	cfgPath := filepath.Join(dir, "pagebuilder.yaml")

	_, err := run(t, "--config", cfgPath, "build")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "build")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "history", "--json", "-n", "1")
	require.NoError(t, err)
	var builds []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, "success", builds[0]["status"])

	out, err = run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestHistoryCommand_Disabled(t *testing.T) {
	dir := writeSite(t)
	cfgPath := filepath.Join(dir, "pagebuilder.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("site:\n  title: Test\n"), 0o644))

	_, err := run(t, "--config", cfgPath, "history")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "pagebuilder "))
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "build")
	require.Error(t, err)
	assert.Equal(t, 7, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}
