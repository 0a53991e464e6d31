//go:build !linux

package service

import (
	"os"
	"syscall"
)

func childSysProcAttr() *syscall.SysProcAttr {
	return nil
}

// Process groups are only managed on Linux; elsewhere kill just the
// direct child.
func killProcessGroup(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		p.Kill()
	}
}
