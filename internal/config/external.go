package config

import (
	"os"
	"path/filepath"
	"strings"
)

// resolve returns path as-is if absolute, otherwise joins it with the
// directory of the settings file. A leading ~ expands to the home directory.
func (c Config) resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	path = os.ExpandEnv(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if base := c.baseDir(); base != "" {
		return filepath.Join(base, path)
	}
	return filepath.Clean(path)
}

// CatalogPaths merges catalog files from settings with the ones passed on
// the command line, resolving settings entries against the settings file.
// Duplicates are dropped; order is settings first.
func (c Config) CatalogPaths(extra ...string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(p string) {
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range c.Catalogs {
		if strings.TrimSpace(p) != "" {
			add(c.resolve(p))
		}
	}
	for _, p := range extra {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		add(abs)
	}
	return out
}
