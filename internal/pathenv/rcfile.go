package pathenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	blockStart = "# >>> devkit PATH >>>"
	blockEnd   = "# <<< devkit PATH <<<"

	posixExport = `export PATH="$PATH":`
	fishExport  = "set -gx PATH $PATH "

	// Lines written before directories were single-quoted.
	legacyPosixExport = `export PATH="$PATH:`
)

// RCFilePersister keeps a managed block of PATH exports in a shell rc file.
// Rewriting the block is idempotent.
type RCFilePersister struct {
	Path  string
	Shell string
}

var _ Persister = RCFilePersister{}

// DetectShellRC picks the rc file for the user's shell, preferring $SHELL and
// falling back to an existing ~/.zshrc, then ~/.bashrc.
func DetectShellRC(home string) RCFilePersister {
	shell := os.Getenv("SHELL")
	switch {
	case strings.HasSuffix(shell, "zsh"):
		return RCFilePersister{Path: filepath.Join(home, ".zshrc"), Shell: "zsh"}
	case strings.HasSuffix(shell, "fish"):
		return RCFilePersister{Path: filepath.Join(home, ".config", "fish", "config.fish"), Shell: "fish"}
	case strings.HasSuffix(shell, "bash"):
		return RCFilePersister{Path: filepath.Join(home, ".bashrc"), Shell: "bash"}
	}
	if _, err := os.Stat(filepath.Join(home, ".zshrc")); err == nil {
		return RCFilePersister{Path: filepath.Join(home, ".zshrc"), Shell: "zsh"}
	}
	return RCFilePersister{Path: filepath.Join(home, ".bashrc"), Shell: "bash"}
}

func (p RCFilePersister) Add(dirs []string) error {
	return p.update(func(current []string) []string {
		next, _ := appendMissing(current, dirs)
		return next
	})
}

func (p RCFilePersister) Remove(dirs []string) error {
	return p.update(func(current []string) []string {
		next, _ := removeAll(current, dirs)
		return next
	})
}

// Managed returns the directories currently listed in the managed block.
func (p RCFilePersister) Managed() ([]string, error) {
	content, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.Path, err)
	}
	_, dirs, _ := splitBlock(string(content))
	return dirs, nil
}

func (p RCFilePersister) update(fn func([]string) []string) error {
	content, err := os.ReadFile(p.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", p.Path, err)
	}

	before, dirs, after := splitBlock(string(content))
	next := fn(dirs)
	if equalKeys(dirs, next) {
		return nil
	}

	var b strings.Builder
	b.WriteString(before)
	if len(next) > 0 {
		if before != "" && !strings.HasSuffix(before, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(blockStart + "\n")
		for _, dir := range next {
			b.WriteString(p.exportLine(dir) + "\n")
		}
		b.WriteString(blockEnd + "\n")
	}
	b.WriteString(after)

	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", filepath.Dir(p.Path), err)
	}
	if err := os.WriteFile(p.Path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p.Path, err)
	}
	return nil
}

// exportLine single-quotes dir so the shell never expands or splits it.
func (p RCFilePersister) exportLine(dir string) string {
	if p.Shell == "fish" {
		return fishExport + fishQuote(dir)
	}
	return posixExport + posixQuote(dir)
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// posixUnquote reverses posixQuote. It accepts concatenated single-quoted
// segments and backslash escapes outside them.
func posixUnquote(word string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(word); i++ {
		switch c := word[i]; c {
		case '\'':
			end := strings.IndexByte(word[i+1:], '\'')
			if end < 0 {
				return "", false
			}
			b.WriteString(word[i+1 : i+1+end])
			i += end + 1
		case '\\':
			if i+1 == len(word) {
				return "", false
			}
			i++
			b.WriteByte(word[i])
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

var fishEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func fishQuote(s string) string {
	return "'" + fishEscaper.Replace(s) + "'"
}

// fishUnquote reads a fish single-quoted word, where only \\ and \' are
// escapes. Double-quoted words are Go-quoted lines from older releases.
func fishUnquote(word string) (string, bool) {
	if strings.HasPrefix(word, `"`) {
		dir, err := strconv.Unquote(word)
		return dir, err == nil
	}
	if len(word) < 2 || word[0] != '\'' || word[len(word)-1] != '\'' {
		return "", false
	}
	inner := word[1 : len(word)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) && (inner[i+1] == '\\' || inner[i+1] == '\'') {
			i++
			c = inner[i]
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

// splitBlock separates the managed block from the rest of the file and
// returns the directories it lists.
func splitBlock(content string) (before string, dirs []string, after string) {
	start := strings.Index(content, blockStart)
	if start < 0 {
		return content, nil, ""
	}
	rest := content[start:]
	end := strings.Index(rest, blockEnd)
	if end < 0 {
		return content, nil, ""
	}

	body := rest[len(blockStart):end]
	after = strings.TrimPrefix(rest[end+len(blockEnd):], "\n")
	before = content[:start]

	for _, line := range strings.Split(body, "\n") {
		if dir := parseExport(strings.TrimSpace(line)); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return before, dirs, after
}

func parseExport(line string) string {
	var (
		dir string
		ok  bool
	)
	switch {
	case strings.HasPrefix(line, posixExport):
		dir, ok = posixUnquote(strings.TrimPrefix(line, posixExport))
	case strings.HasPrefix(line, legacyPosixExport):
		dir, ok = strings.TrimSuffix(strings.TrimPrefix(line, legacyPosixExport), `"`), true
	case strings.HasPrefix(line, fishExport):
		dir, ok = fishUnquote(strings.TrimPrefix(line, fishExport))
	}
	if !ok {
		return ""
	}
	return dir
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if Key(a[i]) != Key(b[i]) {
			return false
		}
	}
	return true
}
