//go:build unix

package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// processCleanup runs after the command has been waited on.
type processCleanup func()

// setupProcessHandling starts the command in its own process group so that
// cancellation kills everything the shell spawned, not just the shell.
func setupProcessHandling(cmd *exec.Cmd) (attach func(), cleanup processCleanup) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process)
	}
	return func() {}, func() {}
}

func killProcessGroup(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	err := syscall.Kill(-proc.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
