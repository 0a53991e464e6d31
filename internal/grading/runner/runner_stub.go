//go:build !linux

package runner

import (
	"fmt"
	"io"
)

const (
	ExitOK             = 0
	ExitScoringFailure = 1
	ExitParamError     = 2
)

const MaxCapturedOutput = 1_000_000

// Run is only implemented on Linux.
func Run(dir string, initCmd []string, stdout io.Writer) int {
	fmt.Fprintln(stdout, "scoring runner is only supported on linux")
	return ExitScoringFailure
}

// InitExec is only implemented on Linux.
func InitExec(dir string) error {
	return fmt.Errorf("scoring runner is only supported on linux")
}
