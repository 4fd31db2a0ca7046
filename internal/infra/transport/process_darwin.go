//go:build darwin

package transport

import (
	"os"
	"os/exec"
	"syscall"
)

// bindProcessLifetime places the backend in its own process group so the
// whole tree can be reaped on close. macOS has no parent-death signal, so
// orphan prevention relies on the group kill alone.
func bindProcessLifetime(cmd *exec.Cmd) processCleanup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		return reapProcessTree(cmd.Process)
	}
	return func() {
		_ = reapProcessTree(cmd.Process)
	}
}

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
