package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout reports that a command was killed after exceeding its timeout.
var ErrTimeout = errors.New("command timed out")

// exitNotFound mirrors the shell convention for a command that could not be started.
const exitNotFound = 127

// Command is a single subprocess invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line for logs and messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

type Options struct {
	Timeout time.Duration
	Stdout  io.Writer
	Stderr  io.Writer
}

type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Output returns stdout and stderr joined and trimmed.
func (r Result) Output() string {
	out := strings.TrimSpace(string(r.Stdout))
	errOut := strings.TrimSpace(string(r.Stderr))
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Runner executes external commands. A non-zero exit status is reported as an
// error alongside the populated Result.
type Runner interface {
	Run(ctx context.Context, cmd Command, opts Options) (Result, error)
}

type CmdRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the process
	// tree has been killed.
	WaitDelay time.Duration
}

func (r CmdRunner) Run(ctx context.Context, command Command, opts Options) (Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command.Path, command.Args...)
	if command.Dir != "" {
		cmd.Dir = command.Dir
	}
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	attach, cleanup := setupProcessHandling(cmd)
	defer cleanup()

	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriter := io.Writer(&stdoutBuf)
	if opts.Stdout != nil {
		stdoutWriter = io.MultiWriter(&stdoutBuf, opts.Stdout)
	}
	stderrWriter := io.Writer(&stderrBuf)
	if opts.Stderr != nil {
		stderrWriter = io.MultiWriter(&stderrBuf, opts.Stderr)
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	started := time.Now()
	err := cmd.Start()
	if err == nil {
		attach()
		err = cmd.Wait()
	}
	result := Result{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		Duration: time.Since(started),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, fmt.Errorf("%s: %w after %s", command.Path, ErrTimeout, opts.Timeout)
		}
		return result, fmt.Errorf("%s: %w", command.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("%s exited with status %d", command.Path, result.ExitCode)
	}

	result.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		result.ExitCode = exitNotFound
	}
	return result, err
}

var _ Runner = CmdRunner{}

// ExitCode extracts the exit status carried by a Run error, or 0 when err is nil.
func ExitCode(res Result, err error) int {
	if err == nil {
		return 0
	}
	if res.ExitCode == 0 {
		return 1
	}
	return res.ExitCode
}
