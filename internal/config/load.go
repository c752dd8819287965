package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// DefaultFiles are probed in order when no configuration path is given.
var DefaultFiles = []string{"pagebuilder.yaml", "pagebuilder.yml", "pagebuilder.toml"}

// Load reads the configuration file at path from the OS filesystem. An empty
// path probes DefaultFiles in the working directory.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads a configuration file from fs, applies defaults and validates
// the result.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		found, err := probe(fs)
		if err != nil {
			return nil, err
		}
		path = found
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read configuration file").
			WithContext("path", path).
			Build()
	}

	dir := filepath.Dir(path)
	loadEnvFiles(fs, dir)

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid configuration file").
			WithContext("path", path).
			UserAction().
			Build()
	}
	cfg.Root = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration data in the format named by ext (".yaml",
// ".yml" or ".toml") on top of Default. Environment variables are expanded.
func Parse(data []byte, ext string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	raw := map[string]any{}
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, err
		}
	default:
		return nil, errors.ConfigError("unsupported configuration format").
			WithContext("extension", ext).
			Build()
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}

func probe(fs afero.Fs) (string, error) {
	for _, name := range DefaultFiles {
		if ok, _ := afero.Exists(fs, name); ok {
			return name, nil
		}
	}
	return "", errors.ConfigError("no configuration file found").
		WithContext("candidates", strings.Join(DefaultFiles, ", ")).
		Build()
}

// loadEnvFiles loads .env.local and .env from dir. Variables already set in
// the environment win, then .env.local, then .env. Missing files are ignored.
func loadEnvFiles(fs afero.Fs, dir string) {
	for _, name := range []string{".env.local", ".env"} {
		f, err := fs.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		vars, err := godotenv.Parse(f)
		_ = f.Close()
		if err != nil {
			continue
		}
		for k, v := range vars {
			if _, set := os.LookupEnv(k); !set {
				_ = os.Setenv(k, v)
			}
		}
	}
}
