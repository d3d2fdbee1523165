//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so that signals sent
// to the server's group do not reach it
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
