//go:build linux

package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/shlex"
	"golang.org/x/sys/unix"
)

// Exit codes of the scoring-runner process.
const (
	ExitOK             = 0 // script finished, stdout carries its verdict
	ExitScoringFailure = 1 // timeout, crash or infrastructure failure
	ExitParamError     = 2 // bad invocation, nothing was attempted
)

// MaxCapturedOutput bounds how much script stdout the runner retains.
const MaxCapturedOutput = 1_000_000

// Run executes the scoring directory at dir and returns the process exit
// code for the runner. initCmd is the command prefix used to spawn the
// child in init mode; dir is appended to it. The child is placed in its
// own process group so the whole script tree can be killed at once, and
// is configured to die with the runner.
//
// On a clean script exit the captured script stdout is written to stdout
// and ExitOK is returned. On timeout or a nonzero script exit a one-line
// failure description is written to stdout instead.
func Run(dir string, initCmd []string, stdout io.Writer) int {
	cfg, err := LoadConfig(dir)
	if err != nil {
		fmt.Fprintf(stdout, "cannot load scoring config: %v\n", err)
		return ExitScoringFailure
	}

	logFile, err := os.OpenFile(cfg.ScoringLog, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		fmt.Fprintf(stdout, "cannot open scoring log: %v\n", err)
		return ExitScoringFailure
	}
	defer logFile.Close()

	args := append(append([]string(nil), initCmd...), dir)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = cfg.WorkingDirectory
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	out := &cappedBuffer{max: MaxCapturedOutput}
	cmd.Stdout = out
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(stdout, "cannot start scoring script: %v\n", err)
		return ExitScoringFailure
	}

	var timedOut atomic.Bool
	timer := time.AfterFunc(time.Duration(cfg.TimeLimitMS)*time.Millisecond, func() {
		timedOut.Store(true)
		killProcessGroup(cmd.Process.Pid)
	})
	waitErr := cmd.Wait()
	timer.Stop()

	// Stragglers forked by the script do not outlive the attempt.
	killProcessGroup(cmd.Process.Pid)

	if timedOut.Load() {
		fmt.Fprintf(stdout, "scoring timed out after %d ms\n", cfg.TimeLimitMS)
		return ExitScoringFailure
	}
	if waitErr != nil {
		fmt.Fprintf(stdout, "scoring script exited with code %d\n", exitCodeFromErr(waitErr))
		return ExitScoringFailure
	}

	if _, err := stdout.Write(out.Bytes()); err != nil {
		return ExitScoringFailure
	}
	return ExitOK
}

// InitExec runs in the child process. It installs the address-space limit,
// changes into the working directory and replaces itself with the scoring
// script. It only returns on error.
func InitExec(dir string) error {
	cfg, err := LoadConfig(dir)
	if err != nil {
		return err
	}

	lim := &unix.Rlimit{
		Cur: uint64(cfg.MemoryLimitBytes),
		Max: uint64(cfg.MemoryLimitBytes),
	}
	if err := unix.Setrlimit(unix.RLIMIT_AS, lim); err != nil {
		return fmt.Errorf("set memory limit: %w", err)
	}

	if err := os.Chdir(cfg.WorkingDirectory); err != nil {
		return fmt.Errorf("enter working directory: %w", err)
	}

	parts, err := shlex.Split(cfg.ScorerCommand)
	if err != nil || len(parts) == 0 {
		return fmt.Errorf("bad scorer command %q", cfg.ScorerCommand)
	}
	argv := append(parts, cfg.ScoringScript, cfg.UserOutput, cfg.Answer)
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("find scorer %q: %w", argv[0], err)
	}

	if cfg.SeccompProfile != "" {
		if err := applySeccomp(cfg.SeccompProfile); err != nil {
			return err
		}
	}
	return unix.Exec(path, argv, os.Environ())
}

// killProcessGroup sends SIGKILL to the process group of pid.
func killProcessGroup(pid int) {
	syscall.Kill(-pid, syscall.SIGKILL)
}

func exitCodeFromErr(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// cappedBuffer retains at most max bytes and silently drops the rest, so
// a script spewing output cannot exhaust runner memory.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if spare := b.max - b.buf.Len(); spare > 0 {
		if len(p) > spare {
			p = p[:spare]
		}
		b.buf.Write(p)
	}
	return n, nil
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }
