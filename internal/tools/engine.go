// Package tools implements the per-tool lifecycle: detection, installation,
// verification, update, PATH repair and removal, driven by catalog
// descriptors.
package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"devkit/internal/catalog"
	"devkit/internal/pathenv"
	"devkit/internal/runner"
)

// DefaultPassThreshold is the fraction of functionality tests that must pass.
const DefaultPassThreshold = 0.7

var (
	ErrNotInstalled      = errors.New("not installed")
	ErrMissingDependency = errors.New("missing dependency")
	ErrBlocked           = errors.New("blocked by running process")
	ErrNoCandidates      = errors.New("no usable install method")
	ErrVerification      = errors.New("verification failed")
)

// PathHistory remembers the directories added to PATH for each tool.
type PathHistory interface {
	Record(tool string, dirs ...string) error
	Dirs(tool string) ([]string, error)
	Forget(tool string) error
}

// Policy holds the tunables shared by every operation.
type Policy struct {
	PassThreshold   float64
	CommandTimeout  time.Duration
	VersionTimeout  time.Duration
	PackageManagers []string
	Shell           []string
	// DataDir hosts install locks and the {data} placeholder.
	DataDir string
	// DownloadsDir caches fetched artefacts; it defaults to {data}/downloads.
	DownloadsDir string
}

func DefaultPolicy() Policy {
	return Policy{
		PassThreshold:   DefaultPassThreshold,
		CommandTimeout:  30 * time.Minute,
		VersionTimeout:  20 * time.Second,
		PackageManagers: append([]string(nil), catalog.DefaultPackageManagers...),
		Shell:           runner.DefaultShell(),
	}
}

// Engine runs lifecycle operations. Every external effect goes through its
// collaborators so tests can substitute them.
type Engine struct {
	Runner    runner.Runner
	Paths     pathenv.Store
	History   PathHistory
	Processes ProcessChecker
	LookPath  func(string) (string, error)
	HTTP      *http.Client
	Policy    Policy
	Logger    *zap.Logger
	// Output receives live subprocess output when set. Lines are prefixed
	// with the target name.
	Output io.Writer

	outputMu sync.Mutex
}

// Do dispatches op for desc and stamps the result with target, operation and
// duration.
func (e *Engine) Do(ctx context.Context, op Operation, desc catalog.Descriptor, opts Options) Result {
	started := time.Now()
	ctx = withTarget(ctx, desc.Key())
	log := e.logger().With(zap.String("tool", desc.Key()), zap.String("operation", string(op)))
	log.Debug("operation started")

	var res Result
	switch op {
	case OpInstall:
		res = e.Install(ctx, desc, opts)
	case OpTest:
		res = e.Verify(ctx, desc, opts)
	case OpReinstall:
		res = e.Reinstall(ctx, desc, opts)
	case OpUpdate:
		res = e.Update(ctx, desc, opts)
	case OpCheck:
		res = e.Check(ctx, desc)
	case OpFixPath:
		res = e.RepairPath(ctx, desc, opts)
	case OpUninstall:
		res = e.Uninstall(ctx, desc, opts)
	case OpStatus:
		res = e.StatusOf(ctx, desc)
	default:
		res = Result{Outcome: Failure{Kind: KindInvalid, Reason: fmt.Sprintf("unknown operation %q", op)}}
	}

	if err := ctx.Err(); err != nil && !res.Succeeded() {
		res.Outcome = Failure{Kind: KindCanceled, Reason: err.Error()}
	}
	res.Target = desc.Key()
	res.Operation = op
	res.Duration = time.Since(started)

	fields := []zap.Field{
		zap.String("state", string(res.Outcome.State())),
		zap.String("message", res.Message()),
		zap.Duration("duration", res.Duration),
	}
	if kind := res.Kind(); kind != "" {
		fields = append(fields, zap.String("kind", string(kind)))
		log.Warn("operation failed", fields...)
	} else {
		log.Info("operation finished", fields...)
	}
	return res
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) lookPath(name string) (string, error) {
	if e.LookPath != nil {
		return e.LookPath(name)
	}
	return exec.LookPath(name)
}

func (e *Engine) shell(line string) runner.Command {
	return runner.Shell(e.Policy.Shell, line)
}

func (e *Engine) httpClient() *http.Client {
	if e.HTTP != nil {
		return e.HTTP
	}
	return &http.Client{Timeout: e.commandTimeout()}
}

func (e *Engine) passThreshold() float64 {
	t := e.Policy.PassThreshold
	if t <= 0 || t > 1 {
		return DefaultPassThreshold
	}
	return t
}

func (e *Engine) commandTimeout() time.Duration {
	if e.Policy.CommandTimeout <= 0 {
		return 30 * time.Minute
	}
	return e.Policy.CommandTimeout
}

func (e *Engine) versionTimeout() time.Duration {
	if e.Policy.VersionTimeout <= 0 {
		return 20 * time.Second
	}
	return e.Policy.VersionTimeout
}

// exec runs a command with the given timeout and logs the outcome.
func (e *Engine) exec(ctx context.Context, cmd runner.Command, timeout time.Duration) (runner.Result, error) {
	log := e.logger().With(zap.String("command", cmd.String()))
	log.Debug("exec")

	opts := runner.Options{Timeout: timeout}
	if e.Output != nil {
		stdout := newPrefixWriter(&e.outputMu, e.Output, targetFrom(ctx))
		stderr := newPrefixWriter(&e.outputMu, e.Output, targetFrom(ctx))
		defer stdout.Flush()
		defer stderr.Flush()
		opts.Stdout, opts.Stderr = stdout, stderr
	}
	res, err := e.Runner.Run(ctx, cmd, opts)
	if err != nil {
		log.Debug("exec failed",
			zap.Int("exit_code", runner.ExitCode(res, err)),
			zap.Duration("duration", res.Duration),
			zap.String("output", truncate(res.Output(), 2000)),
			zap.Error(err),
		)
		return res, err
	}
	log.Debug("exec ok", zap.Duration("duration", res.Duration))
	return res, nil
}

// vars builds the placeholder set available to command templates.
func (e *Engine) vars(desc catalog.Descriptor, opts Options) map[string]string {
	v := map[string]string{
		"name":    desc.Key(),
		"version": opts.Version,
		"data":    e.Policy.DataDir,
	}
	if order := desc.ManagerOrder(e.Policy.PackageManagers); len(order) > 0 {
		v["package"] = desc.Packages[order[0]]
	}
	if desc.Download != nil {
		v["install_dir"] = runner.Expand(desc.Download.InstallDir, v)
	}
	if desc.Script != "" {
		v["script"] = runner.Expand(desc.Script, v)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func failure(kind FailureKind, format string, args ...any) Outcome {
	return Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
