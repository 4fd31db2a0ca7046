//go:build !linux && !darwin

package transport

import "os/exec"

// bindProcessLifetime falls back to killing the direct child on platforms
// without unix process groups. Grandchildren spawned by the backend are
// not tracked here.
func bindProcessLifetime(cmd *exec.Cmd) processCleanup {
	return func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
}
