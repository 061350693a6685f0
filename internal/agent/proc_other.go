//go:build !unix

package agent

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(*exec.Cmd) {}

// signalProcess kills outright; graceful signals are not deliverable here.
func signalProcess(p *os.Process, _ bool, _ syscall.Signal) error {
	return p.Kill()
}
