//go:build !unix

package convert

import "os/exec"

func isolateProcessGroup(cmd *exec.Cmd) {}
