package tools

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"devkit/internal/catalog"
)

// ProcessChecker reports which of the named processes are running.
type ProcessChecker interface {
	Running(ctx context.Context, names []string) ([]string, error)
}

// SystemProcesses inspects the live process table.
type SystemProcesses struct{}

var _ ProcessChecker = SystemProcesses{}

func (SystemProcesses) Running(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]string, len(names))
	for _, name := range names {
		wanted[processKey(name)] = name
	}

	self := int32(os.Getpid())
	found := map[string]struct{}{}
	var running []string
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		original, ok := wanted[processKey(name)]
		if !ok {
			continue
		}
		if _, dup := found[original]; dup {
			continue
		}
		found[original] = struct{}{}
		running = append(running, original)
	}
	return running, nil
}

func processKey(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}

// checkBlocked returns a blocked outcome when one of the descriptor's
// blocking processes is running and force is not set.
func (e *Engine) checkBlocked(ctx context.Context, desc catalog.Descriptor, opts Options) Outcome {
	if opts.Force || e.Processes == nil || len(desc.BlockingProcesses) == 0 {
		return nil
	}
	running, err := e.Processes.Running(ctx, desc.BlockingProcesses)
	if err != nil {
		e.logger().Warn("process scan failed", zap.String("tool", desc.Key()), zap.Error(err))
		return nil
	}
	if len(running) == 0 {
		return nil
	}
	return failure(KindBlocked, "close %s first or pass --force", joinNames(running))
}
