package service

import (
	"context"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"evograder/internal/grading/model"
	"evograder/internal/grading/repository"
	apperrors "evograder/pkg/errors"
	"evograder/pkg/utils/logger"
)

// AttemptRunner executes one claimed attempt to a terminal state.
type AttemptRunner interface {
	RunAttempt(ctx context.Context, attempt *model.GradingAttempt) error
}

// Supervisor runs each attempt in a separate OS process so a forceful
// kill of the worker cannot leave an attempt stuck unfinished. After the
// child exits, for any reason, an attempt that is still not finished is
// force-finalized as a dirty failure.
type Supervisor struct {
	repo   repository.Repository
	events *repository.AttemptEventPublisher

	// cmd is the grade-attempt invocation prefix; the attempt id is
	// appended.
	cmd []string
}

func NewSupervisor(repo repository.Repository, events *repository.AttemptEventPublisher, cmd []string) *Supervisor {
	return &Supervisor{repo: repo, events: events, cmd: cmd}
}

func (s *Supervisor) RunAttempt(ctx context.Context, attempt *model.GradingAttempt) error {
	ctx = logger.WithAttempt(ctx, attempt.ID, attempt.SubmissionID)

	args := append(append([]string(nil), s.cmd...), strconv.FormatInt(attempt.ID, 10))
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = childSysProcAttr()

	if err := cmd.Start(); err != nil {
		logger.Warn(ctx, "grading process did not start", zap.Error(err))
	} else {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		select {
		case err := <-done:
			if err != nil {
				logger.Warn(ctx, "grading process did not exit cleanly", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Warn(ctx, "shutting down, killing grading process")
			killProcessGroup(cmd.Process.Pid)
			<-done
		}
	}

	// Cleanup must still reach the database after a shutdown signal
	// canceled ctx, so it runs on a cancellation-free context.
	ctx = context.WithoutCancel(ctx)

	got, err := s.repo.GetAttempt(ctx, attempt.ID)
	if err != nil {
		return err
	}
	if got.Finished {
		return nil
	}
	logger.Error(ctx, "attempt left unfinished, force-finalizing")
	return s.ForceFinalize(ctx, got)
}

// ForceFinalize drives an unfinished attempt to the dirty-failure
// terminal state. Safe to race with a late orchestrator finish: whichever
// side finalizes first wins and the other is a no-op.
func (s *Supervisor) ForceFinalize(ctx context.Context, attempt *model.GradingAttempt) error {
	attempt.Score = nil
	attempt.Succeeded = false
	attempt.ScoringStatus = model.StatusError
	attempt.ScoringMsg = dirtyFailureMsg

	if err := s.repo.FinishAttempt(ctx, attempt); err != nil {
		if apperrors.Is(err, apperrors.AttemptFinished) {
			return nil
		}
		return err
	}
	if s.events != nil {
		if err := s.events.PublishFinished(ctx, attempt); err != nil {
			logger.Warn(ctx, "attempt event not published", zap.Error(err))
		}
	}
	return nil
}
