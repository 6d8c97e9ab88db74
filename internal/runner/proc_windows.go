//go:build windows

package runner

import (
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/windows"
)

type processCleanup func()

// jobTree groups the child and its descendants in a job object so
// cancellation can terminate the whole tree.
type jobTree struct {
	mu  sync.Mutex
	job windows.Handle
}

// setupProcessHandling hides the console window and arranges for
// cancellation to kill the process tree. attach must be called after Start.
func setupProcessHandling(cmd *exec.Cmd) (attach func(), cleanup processCleanup) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}

	tree := &jobTree{}
	if job, err := windows.CreateJobObject(nil, nil); err == nil {
		tree.job = job
	}

	cmd.Cancel = func() error {
		if tree.terminate() {
			return nil
		}
		// Without a job, fall back to killing the tree by pid.
		return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
	}
	return func() { tree.assign(cmd) }, tree.close
}

func (t *jobTree) assign(cmd *exec.Cmd) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job == 0 || cmd.Process == nil {
		return
	}
	proc, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(cmd.Process.Pid))
	if err == nil {
		err = windows.AssignProcessToJobObject(t.job, proc)
		_ = windows.CloseHandle(proc)
	}
	if err != nil {
		_ = windows.CloseHandle(t.job)
		t.job = 0
	}
}

func (t *jobTree) terminate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job == 0 {
		return false
	}
	return windows.TerminateJobObject(t.job, 1) == nil
}

func (t *jobTree) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job != 0 {
		_ = windows.CloseHandle(t.job)
		t.job = 0
	}
}
