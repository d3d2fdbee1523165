//go:build !unix

package runner

import "os/exec"

func detach(_ *exec.Cmd) {}
