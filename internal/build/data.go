package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// LoadData reads every YAML, TOML and JSON file below dirs into one tree.
// A file "data/authors/team.yaml" in dir "data" is addressed as
// authors.team. Later directories win on conflicting keys.
func LoadData(fs afero.Fs, dirs []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, dir := range dirs {
		exists, err := afero.DirExists(fs, dir)
		if err != nil || !exists {
			return nil, errors.ConfigError("data directory not found").
				WithContext("path", dir).
				Build()
		}
		var files []string
		err = afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if p != dir && strings.HasPrefix(info.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasPrefix(info.Name(), ".") && decoders[strings.ToLower(filepath.Ext(p))] != nil {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan data directory").
				WithContext("path", dir).
				Build()
		}
		sort.Strings(files)

		for _, f := range files {
			value, err := decodeDataFile(fs, f)
			if err != nil {
				return nil, err
			}
			rel, _ := filepath.Rel(dir, f)
			rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
			insert(out, strings.Split(rel, "/"), value)
		}
	}
	return out, nil
}

type decodeFunc func([]byte, any) error

var decoders = map[string]decodeFunc{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".toml": toml.Unmarshal,
	".json": json.Unmarshal,
}

func decodeDataFile(fs afero.Fs, p string) (any, error) {
	raw, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read data file").
			WithContext("file", p).
			Build()
	}
	var v any
	if err := decoders[strings.ToLower(filepath.Ext(p))](raw, &v); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse data file").
			Fatal().
			WithContext("file", p).
			Build()
	}
	return v, nil
}

func insert(tree map[string]any, keys []string, v any) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := tree[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			tree[k] = next
		}
		tree = next
	}
	tree[keys[len(keys)-1]] = v
}
