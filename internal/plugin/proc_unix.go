//go:build unix

package plugin

import (
	"os/exec"
	"syscall"
)

// isolate puts the plugin in its own process group and kills the whole
// group on cancel, so children holding stdout die with it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
