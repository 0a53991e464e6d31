package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"evograder/internal/grading/repository"
	"evograder/pkg/utils/logger"
)

// DefaultWorkerPollInterval is the idle sleep between claim attempts.
const DefaultWorkerPollInterval = time.Second

// Worker is the polling driver: claim the oldest pending submission, run
// its attempt, repeat. One attempt in flight at a time; scale out by
// running more workers, claim atomicity keeps them from colliding.
type Worker struct {
	repo         repository.Repository
	runner       AttemptRunner
	id           string
	pollInterval time.Duration
}

func NewWorker(repo repository.Repository, runner AttemptRunner, id string, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultWorkerPollInterval
	}
	return &Worker{repo: repo, runner: runner, id: id, pollInterval: pollInterval}
}

// Run loops until ctx is canceled. Claim and attempt failures are logged
// and retried after the poll interval, they never stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithWorker(ctx, w.id)
	logger.Info(ctx, "grading worker started",
		zap.Duration("poll_interval", w.pollInterval))

	for {
		if err := ctx.Err(); err != nil {
			logger.Info(ctx, "grading worker stopping")
			return err
		}

		sub, attempt, err := w.repo.ClaimNext(ctx)
		if err != nil {
			logger.Error(ctx, "claim failed", zap.Error(err))
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if attempt == nil {
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		logger.Info(ctx, "claimed submission",
			zap.Int64("submission_id", sub.ID),
			zap.Int64("attempt_id", attempt.ID))
		if err := w.runner.RunAttempt(ctx, attempt); err != nil {
			logger.Error(ctx, "attempt execution failed",
				zap.Int64("attempt_id", attempt.ID), zap.Error(err))
		}
	}
}

func (w *Worker) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
