// Package configutil reads json5 config files and layers them with defaults.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// readLayer decodes a single file, found reports whether it existed.
func readLayer[T any](path string) (layer T, found bool, err error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(contents) == 0) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if err := json5.Unmarshal(contents, &layer); err != nil {
		return layer, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// localPath turns `dir/config.json5` into `dir/config.local.json5`.
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// ReadConfig reads `path` and then its `.local` sibling, fields set in the local
// file replace the ones in the base file. Explicitly set pointer fields replace
// the base value even when they point to a zero value.
//
// When neither file exists the error is os.ErrNotExist.
func ReadConfig[T any](path string) (T, error) {
	out, foundBase, err := readLayer[T](path)
	if err != nil {
		return out, err
	}

	local := localPath(path)
	override, foundLocal, err := readLayer[T](local)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride, mergo.WithoutDereference)
		if err != nil {
			return out, err
		}
		slog.Info("applied local config overrides", "path", local)
	}

	if !foundBase && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively calls ReadConfig in the working directory and then in each
// parent directory until one of them has the file.
func ReadRecursively[T any](name string) (T, error) {
	var zero T
	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if !errors.Is(err, os.ErrNotExist) {
			return config, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}

// WithDefaults fills the zero fields of cfg from defaults. A non-nil pointer
// counts as set, so optional settings whose zero value means something are
// declared as pointers.
func WithDefaults[T any](cfg T, defaults T) (T, error) {
	err := mergo.Merge(&cfg, defaults, mergo.WithoutDereference)
	return cfg, err
}
