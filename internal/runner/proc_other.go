//go:build !unix && !windows

package runner

import "os/exec"

type processCleanup func()

func setupProcessHandling(*exec.Cmd) (attach func(), cleanup processCleanup) {
	return func() {}, func() {}
}
