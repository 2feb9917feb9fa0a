package configutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// codec reads one config format into generic maps and back into a typed
// value once the layers are merged.
type codec struct {
	unmarshal func(data []byte, out any) error
	marshal   func(in any) ([]byte, error)
}

func codecFor(ext string) (codec, error) {
	switch ext {
	case ".yaml", ".yml":
		return codec{unmarshal: yaml.Unmarshal, marshal: yaml.Marshal}, nil
	case ".json5", ".json":
		// plain json is valid json5
		return codec{unmarshal: json5.Unmarshal, marshal: json.Marshal}, nil
	}
	return codec{}, fmt.Errorf("unsupported config format %q", ext)
}

// LocalPath is the override file of a config: config.json5 -> config.local.json5.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer decodes one file into a generic map, ok is false when it does
// not exist. ${VAR} references are expanded from the environment first.
func readLayer(c codec, path string) (layer map[string]any, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	expanded := os.ExpandEnv(string(data))
	err = c.unmarshal([]byte(expanded), &layer)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// ReadConfig reads `name` (which must carry its extension) and merges
// <name>.local.<ext> over it. .json5/.json files parse as json5,
// .yaml/.yml as yaml. Layers merge key by key before decoding, so a scalar
// set in the local file wins even when it is false, 0 or "".
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	c, err := codecFor(filepath.Ext(name))
	if err != nil {
		return out, err
	}

	var merged map[string]any
	for _, path := range []string{name, LocalPath(name)} {
		layer, ok, err := readLayer(c, path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if merged == nil {
			merged = layer
			continue
		}
		err = mergo.Merge(&merged, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Info("merged config with local overrides", "local", path)
	}
	if merged == nil {
		return out, os.ErrNotExist
	}

	data, err := c.marshal(merged)
	if err != nil {
		return out, fmt.Errorf("encode merged %s: %w", name, err)
	}
	err = c.unmarshal(data, &out)
	if err != nil {
		return out, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

// ReadRecursively looks for `name` in the working directory and then in
// every parent up to the filesystem root.
func ReadRecursively[T any](name string) (T, error) {
	var out T
	dir, err := os.Getwd()
	if err != nil {
		return out, err
	}
	for {
		cfg, err := ReadConfig[T](filepath.Join(dir, name))
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return out, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return out, os.ErrNotExist
		}
		dir = parent
	}
}
