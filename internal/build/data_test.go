package build

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

func TestLoadData(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/data/authors.yaml":      "alice:\n  name: Alice\n",
		"/data/nav/main.toml":     "title = \"Main\"\nitems = [\"home\", \"blog\"]\n",
		"/data/build.json":        `{"version": 2}`,
		"/data/.hidden.yaml":      "ignored: true\n",
		"/data/readme.txt":        "not data",
		"/override/authors.yaml":  "bob:\n  name: Bob\n",
	}
	for name, src := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(src), 0o644))
	}

	data, err := LoadData(fs, []string{"/data", "/override"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"bob": map[string]any{"name": "Bob"}}, data["authors"])
	nav := data["nav"].(map[string]any)["main"].(map[string]any)
	assert.Equal(t, "Main", nav["title"])
	assert.Equal(t, []any{"home", "blog"}, nav["items"])
	assert.Equal(t, map[string]any{"version": float64(2)}, data["build"])
	assert.NotContains(t, data, ".hidden")
	assert.NotContains(t, data, "readme")
}

func TestLoadData_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/bad.yaml", []byte("a: [unclosed\n"), 0o644))

	_, err := LoadData(fs, []string{"/data"})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfig, ce.Category())
	file, _ := ce.Context().GetString("file")
	assert.Equal(t, "/data/bad.yaml", file)

	_, err = LoadData(fs, []string{"/missing"})
	require.Error(t, err)
}
