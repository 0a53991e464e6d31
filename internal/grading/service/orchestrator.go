// Package service owns the grading attempt lifecycle: the orchestrator
// drives one attempt end to end, the supervisor shields attempts from
// worker crashes and the worker loop turns pending submissions into
// supervised attempts.
package service

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"evograder/internal/grading/model"
	"evograder/internal/grading/protocol"
	"evograder/internal/grading/repository"
	"evograder/internal/grading/scoringdir"
	apperrors "evograder/pkg/errors"
	"evograder/pkg/utils/logger"
)

const (
	abortedMsg      = "aborted"
	dirtyFailureMsg = "Dirty grading failure"

	// DefaultAttemptPollInterval is how often the orchestrator re-reads
	// the abort flag while the scoring process runs. Worst-case abort
	// latency equals one interval.
	DefaultAttemptPollInterval = time.Second
)

// Orchestrator runs one grading attempt: scoring directory, runner
// process, abort polling, verdict parsing and finalization.
type Orchestrator struct {
	repo    repository.Repository
	graders repository.GraderSource
	builder *scoringdir.Builder
	logs    *LogStore
	events  *repository.AttemptEventPublisher

	runnerCmd    []string
	pollInterval time.Duration
}

// OrchestratorConfig carries the process-level knobs.
type OrchestratorConfig struct {
	// RunnerCmd is the scoring-runner invocation prefix; the scoring
	// directory path is appended.
	RunnerCmd []string

	// PollInterval between abort-flag checks. Zero means the default.
	PollInterval time.Duration
}

// NewOrchestrator wires an orchestrator. events may be nil to disable
// event publishing; graders may be the repository itself or a cached
// source in front of it.
func NewOrchestrator(repo repository.Repository, graders repository.GraderSource,
	builder *scoringdir.Builder, logs *LogStore,
	events *repository.AttemptEventPublisher, cfg OrchestratorConfig) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultAttemptPollInterval
	}
	return &Orchestrator{
		repo:         repo,
		graders:      graders,
		builder:      builder,
		logs:         logs,
		events:       events,
		runnerCmd:    cfg.RunnerCmd,
		pollInterval: cfg.PollInterval,
	}
}

// RunAttempt executes the attempt to a terminal state. Scoring failures,
// protocol violations and aborts are resolved into attempt state, not
// returned as errors; only infrastructure failures (storage, database,
// process launch) propagate, to be caught by the supervisor's outer net.
func (o *Orchestrator) RunAttempt(ctx context.Context, attempt *model.GradingAttempt) error {
	ctx = logger.WithAttempt(ctx, attempt.ID, attempt.SubmissionID)

	sub, err := o.repo.GetSubmission(ctx, attempt.SubmissionID)
	if err != nil {
		return err
	}
	grader, err := o.graders.GetGrader(ctx, sub.GraderID)
	if err != nil {
		return err
	}

	dir, err := o.builder.Build(ctx, attempt, sub, grader)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if err := o.repo.MarkStarted(ctx, attempt.ID); err != nil {
		return err
	}
	logger.Info(ctx, "attempt started",
		zap.Int64("grader_id", grader.ID),
		zap.String("scoring_dir", dir))

	args := append(append([]string(nil), o.runnerCmd...), dir)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = childSysProcAttr()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = newBoundedWriter(&stdout, protocol.MaxOutputBytes)
	cmd.Stderr = newBoundedWriter(&stderr, 64<<10)

	if err := cmd.Start(); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringFailed, "start scoring runner: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	waitErr, aborted := o.pollUntilExit(ctx, attempt.ID, cmd.Process.Pid, done)
	if aborted {
		attempt.Aborted = true
		attempt.Score = nil
		attempt.Succeeded = false
		attempt.ScoringStatus = model.StatusError
		attempt.ScoringMsg = abortedMsg
		return o.finalize(ctx, attempt, dir)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	out := stdout.String()
	if waitErr == nil {
		verdict := protocol.Parse(out)
		attempt.Succeeded = true
		attempt.Score = verdict.Score
		attempt.ScoringStatus = verdict.Status
		attempt.ScoringMsg = verdict.Message
	} else {
		if out == "" {
			out = stderr.String()
		}
		attempt.Succeeded = false
		attempt.Score = nil
		attempt.ScoringStatus = model.StatusError
		attempt.ScoringMsg = out
	}
	return o.finalize(ctx, attempt, dir)
}

// pollUntilExit waits for the runner while re-reading the abort flag.
// On abort it kills the runner's process group, reaps it and reports
// aborted = true.
func (o *Orchestrator) pollUntilExit(ctx context.Context, attemptID int64, pid int, done chan error) (error, bool) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err, false
		case <-ctx.Done():
			killProcessGroup(pid)
			<-done
			return ctx.Err(), false
		case <-ticker.C:
			aborted, err := o.repo.IsAborted(ctx, attemptID)
			if err != nil {
				logger.Warn(ctx, "abort flag check failed", zap.Error(err))
				continue
			}
			if aborted {
				logger.Info(ctx, "abort requested, killing scoring runner")
				killProcessGroup(pid)
				<-done
				return nil, true
			}
		}
	}
}

// finalize persists the attempt's terminal fields, mirrors them onto the
// submission and publishes the finished event. The scoring log is stored
// first so the attempt record can reference it.
func (o *Orchestrator) finalize(ctx context.Context, attempt *model.GradingAttempt, dir string) error {
	if key, err := o.logs.SaveFromDir(ctx, dir); err != nil {
		logger.Warn(ctx, "scoring log not stored", zap.Error(err))
	} else {
		attempt.LogKey = key
	}

	if err := o.repo.FinishAttempt(ctx, attempt); err != nil {
		if apperrors.Is(err, apperrors.AttemptFinished) {
			// Force-finalized underneath us, nothing left to do.
			logger.Warn(ctx, "attempt was already finished")
			return nil
		}
		return err
	}
	logger.Info(ctx, "attempt finished",
		zap.String("status", string(attempt.ScoringStatus)),
		zap.Float64p("score", attempt.Score),
		zap.Bool("aborted", attempt.Aborted))

	o.publishFinished(ctx, attempt)
	return nil
}

func (o *Orchestrator) publishFinished(ctx context.Context, attempt *model.GradingAttempt) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishFinished(ctx, attempt); err != nil {
		logger.Warn(ctx, "attempt event not published", zap.Error(err))
	}
}

// boundedWriter drops everything past max. The runner already caps its
// own output, this is the orchestrator's independent bound.
type boundedWriter struct {
	dst *bytes.Buffer
	max int
}

func newBoundedWriter(dst *bytes.Buffer, max int) *boundedWriter {
	return &boundedWriter{dst: dst, max: max}
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if spare := w.max - w.dst.Len(); spare > 0 {
		if len(p) > spare {
			p = p[:spare]
		}
		w.dst.Write(p)
	}
	return n, nil
}
