//go:build unix

package agent

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so termination
// reaches everything it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalProcess(p *os.Process, group bool, sig syscall.Signal) error {
	if group {
		if err := syscall.Kill(-p.Pid, sig); err == nil {
			return nil
		}
	}
	return p.Signal(sig)
}
