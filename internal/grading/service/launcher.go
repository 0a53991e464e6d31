package service

import (
	"context"
	"os"
	"os/exec"
	"strconv"

	"evograder/internal/grading/model"
	apperrors "evograder/pkg/errors"
)

// AttemptLauncher runs each claimed attempt through the grade-attempt
// command. The child is deliberately not tied to the worker's lifetime:
// if the worker is killed mid-attempt, the supervising grade-attempt
// process keeps running and still drives the attempt to a terminal state.
type AttemptLauncher struct {
	cmd []string
}

func NewAttemptLauncher(cmd []string) *AttemptLauncher {
	return &AttemptLauncher{cmd: cmd}
}

func (l *AttemptLauncher) RunAttempt(ctx context.Context, attempt *model.GradingAttempt) error {
	args := append(append([]string(nil), l.cmd...), strconv.FormatInt(attempt.ID, 10))
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringFailed, "grade-attempt for %d: %v", attempt.ID, err)
	}
	return nil
}
