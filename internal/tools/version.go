package tools

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"

	"devkit/internal/catalog"
	"devkit/internal/runner"
)

// readVersion runs the descriptor's version command against the resolved
// executable and returns the first non-empty output line.
func (e *Engine) readVersion(ctx context.Context, desc catalog.Descriptor, exe string) (string, error) {
	tpl := strings.TrimSpace(desc.VersionTemplate())
	fields := strings.Fields(tpl)

	var cmd runner.Command
	if len(fields) > 0 && fields[0] == "{exe}" {
		cmd = runner.Command{Path: exe, Args: fields[1:]}
	} else {
		cmd = e.shell(runner.Expand(tpl, map[string]string{"exe": quoteArg(exe), "name": desc.Key()}))
	}

	res, err := e.exec(ctx, cmd, e.versionTimeout())
	if err != nil {
		return "", err
	}
	line := firstLine(res.Output())
	if line == "" {
		return "", errors.New("version command produced no output")
	}
	return line, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

var versionRegex = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)+(?:[-+][0-9A-Za-z]+(?:\.[0-9A-Za-z]+)*)?)`)

// extractVersion pulls a dotted version token out of a version line, keeping
// the whole line when none is present.
func extractVersion(line string) string {
	if match := versionRegex.FindString(line); match != "" {
		return match
	}
	return strings.TrimSpace(line)
}

func meetsMinimum(current, minimum string) bool {
	minimum = strings.TrimSpace(minimum)
	if minimum == "" {
		return true
	}
	current = strings.TrimSpace(current)
	if current == "" {
		return false
	}

	cv, cerr := version.NewVersion(current)
	mv, merr := version.NewVersion(minimum)
	if cerr == nil && merr == nil {
		return cv.Core().GreaterThanOrEqual(mv.Core())
	}
	return compareNumeric(current, minimum) >= 0
}

// compareNumeric orders loosely formatted versions by their numeric runs.
func compareNumeric(a, b string) int {
	aParts := numericParts(a)
	bParts := numericParts(b)
	for len(aParts) < len(bParts) {
		aParts = append(aParts, 0)
	}
	for len(bParts) < len(aParts) {
		bParts = append(bParts, 0)
	}
	for i := range aParts {
		if aParts[i] > bParts[i] {
			return 1
		}
		if aParts[i] < bParts[i] {
			return -1
		}
	}
	return 0
}

func numericParts(v string) []int {
	var parts []int
	current := strings.Builder{}
	flush := func() {
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	for _, r := range v {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return parts
}

func quoteArg(s string) string {
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	return `"` + s + `"`
}
