package lua

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/potluck/internal/plugin"
)

// Discover lists the .lua files directly inside dir, sorted by file name.
// A missing directory holds no plugins.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("discover lua plugins: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir loads every plugin in dir in file-name order. Files that fail to
// load are skipped and reported in the joined error; the scripts that did
// load are returned either way.
func LoadDir(dir string, opts ...Option) ([]*Script, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	var scripts []*Script
	var errs []error
	for _, path := range paths {
		s, err := Load(path, opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scripts = append(scripts, s)
	}
	return scripts, errors.Join(errs...)
}

// Plugins returns the plugin of every script, in order.
func Plugins(scripts []*Script) []plugin.Plugin {
	out := make([]plugin.Plugin, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, s.Plugin())
	}
	return out
}

// CloseAll closes every script.
func CloseAll(scripts []*Script) {
	for _, s := range scripts {
		s.Close()
	}
}
