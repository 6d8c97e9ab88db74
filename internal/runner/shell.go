package runner

import (
	"runtime"
	"strings"
)

// DefaultShell returns the interpreter used for free-form command lines.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"powershell", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command"}
	}
	return []string{"sh", "-c"}
}

// Shell wraps a command line so it is interpreted by shell. An empty shell
// falls back to DefaultShell.
func Shell(shell []string, line string) Command {
	if len(shell) == 0 {
		shell = DefaultShell()
	}
	args := make([]string, 0, len(shell))
	args = append(args, shell[1:]...)
	args = append(args, line)
	return Command{Path: shell[0], Args: args}
}

// Expand substitutes {key} placeholders in a command template. Unknown
// placeholders are left untouched.
func Expand(template string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
