//go:build linux

package transport

import (
	"os"
	"os/exec"
	"syscall"
)

// bindProcessLifetime places the backend in its own process group so the
// whole tree can be reaped, and asks the kernel to kill it if this
// process dies first.
func bindProcessLifetime(cmd *exec.Cmd) processCleanup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.Cancel = func() error {
		return reapProcessTree(cmd.Process)
	}
	return func() {
		_ = reapProcessTree(cmd.Process)
	}
}

// reapProcessTree signals the backend's process group, not just the direct
// child. Backends that fork workers would otherwise orphan them.
func reapProcessTree(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	err := syscall.Kill(-proc.Pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}
