package tui

import (
	"fmt"
	"io"
	"sync"

	"devkit/internal/tools"
)

// Level classifies a console line.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelSuccess Level = "SUCCESS"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Console writes levelled, optionally coloured lines. Quiet suppresses INFO
// and SUCCESS; warnings and errors are always written.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	color bool
}

// NewConsole creates a console for out. Colour follows ColorEnabled(out).
func NewConsole(out io.Writer, quiet bool) *Console {
	return &Console{out: out, quiet: quiet, color: ColorEnabled(out)}
}

func (c *Console) Infof(format string, args ...any)    { c.printf(LevelInfo, format, args...) }
func (c *Console) Successf(format string, args ...any) { c.printf(LevelSuccess, format, args...) }
func (c *Console) Warnf(format string, args ...any)    { c.printf(LevelWarning, format, args...) }
func (c *Console) Errorf(format string, args ...any)   { c.printf(LevelError, format, args...) }

func (c *Console) printf(level Level, format string, args ...any) {
	if c.quiet && (level == LevelInfo || level == LevelSuccess) {
		return
	}
	tag := "[" + string(level) + "]"
	if c.color {
		tag = levelStyles[level].Render(tag)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

// Raw returns a writer to the console's destination that is serialised with
// its levelled lines.
func (c *Console) Raw() io.Writer {
	return rawWriter{c}
}

type rawWriter struct{ c *Console }

func (w rawWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.out.Write(p)
}

// Result prints one lifecycle result with its notes.
func (c *Console) Result(res tools.Result) {
	switch StatusLabel(res) {
	case StatusSuccess:
		c.Successf("%s %s: %s", res.Operation, res.Target, res.Message())
	case StatusSkipped:
		c.Infof("%s %s: skipped (%s)", res.Operation, res.Target, res.Message())
	default:
		c.Errorf("%s %s: %s: %s", res.Operation, res.Target, res.Kind(), res.Message())
	}
	for _, note := range res.Notes {
		c.Infof("  %s", note)
	}
	for _, test := range res.Tests {
		mark := "pass"
		if !test.Passed {
			mark = "FAIL"
		}
		c.Infof("  [%s] %s", mark, test.Name)
	}
}
