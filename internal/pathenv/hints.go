package pathenv

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var percentVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)

// expandVars resolves %VAR%, $VAR, ${VAR} and a leading ~. Unset variables
// expand to the empty string.
func expandVars(s string) string {
	s = percentVar.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(strings.Trim(m, "%"))
	})
	s = os.ExpandEnv(s)
	if s == "~" || strings.HasPrefix(s, "~/") || strings.HasPrefix(s, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			s = home + s[1:]
		}
	}
	return s
}

// unresolved reports whether a hint references a variable that is unset, in
// which case expanding it would yield a misleading relative path.
func unresolved(hint string) bool {
	for _, m := range percentVar.FindAllStringSubmatch(hint, -1) {
		if os.Getenv(m[1]) == "" {
			return true
		}
	}
	missing := false
	os.Expand(hint, func(name string) string {
		if os.Getenv(name) == "" {
			missing = true
		}
		return ""
	})
	return missing
}

// ResolveHints expands each hint, applying {placeholder} substitutions from
// vars first, globbing wildcards, and keeping only existing directories. The
// result is de-duplicated and keeps hint order.
func ResolveHints(hints []string, vars map[string]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, hint := range hints {
		hint = strings.TrimSpace(hint)
		for key, value := range vars {
			hint = strings.ReplaceAll(hint, "{"+key+"}", value)
		}
		if hint == "" || unresolved(hint) {
			continue
		}
		for _, dir := range expandHint(hint) {
			key := Key(dir)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, dir)
		}
	}
	return out
}

func expandHint(hint string) []string {
	pattern := filepath.Clean(filepath.FromSlash(expandVars(hint)))

	candidates := []string{pattern}
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil
		}
		candidates = matches
	}

	var dirs []string
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			dirs = append(dirs, candidate)
		}
	}
	return dirs
}
