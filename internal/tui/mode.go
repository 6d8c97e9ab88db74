package tui

import (
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// OutputMode describes how progress output should be rendered.
type OutputMode int

const (
	// ModeTUI uses bubbletea for interactive progress rendering.
	ModeTUI OutputMode = iota
	// ModePlain writes levelled lines as each target completes.
	ModePlain
	// ModeJSON writes the batch as JSON.
	ModeJSON
)

// DetectMode determines the appropriate output mode for the given writer.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	if jsonOutput {
		return ModeJSON
	}
	if noProgress || !IsTerminal(out) || dumbTerminal() {
		return ModePlain
	}
	return ModeTUI
}

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ColorEnabled respects NO_COLOR, TERM=dumb and non-terminal writers.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || dumbTerminal() {
		return false
	}
	return IsTerminal(w)
}

func dumbTerminal() bool {
	if runtime.GOOS == "windows" {
		return false
	}
	t := os.Getenv("TERM")
	return t == "" || strings.EqualFold(t, "dumb")
}
