// Package scoringdir assembles the on-disk layout a scoring run needs:
// the scoring script, the contestant's output, the reference answer, an
// empty scoring log and the config file the runner reads.
package scoringdir

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"evograder/internal/common/storage"
	"evograder/internal/grading/model"
	"evograder/internal/grading/runner"
	apperrors "evograder/pkg/errors"
)

const (
	ScriptFileName = "scoring_script.py"
	OutputFileName = "user_output"
	AnswerFileName = "answer"
	LogFileName    = "scoring.log"
)

// Builder materializes scoring directories under Root. Directory names
// embed the attempt id plus a random suffix, so concurrent attempts and
// retries never collide.
type Builder struct {
	Root          string
	Blobs         storage.BlobStore
	ScorerCommand string

	// SeccompProfile is the optional syscall filter the runner applies
	// to the scoring script. Empty disables filtering.
	SeccompProfile string
}

func NewBuilder(root string, blobs storage.BlobStore, scorerCommand string) *Builder {
	return &Builder{Root: root, Blobs: blobs, ScorerCommand: scorerCommand}
}

// Build creates a fresh scoring directory for the attempt and returns its
// absolute path. The partially built directory is removed on error.
func (b *Builder) Build(ctx context.Context, attempt *model.GradingAttempt, sub *model.Submission, grader *model.DataGrader) (string, error) {
	if sub.OutputKey == nil {
		return "", apperrors.Newf(apperrors.ScoringDirError, "submission has no output blob")
	}

	if err := os.MkdirAll(b.Root, 0755); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ScoringDirError, "create scoring root: %v", err)
	}
	dir := filepath.Join(b.Root, fmt.Sprintf("attempt-%d-%s", attempt.ID, uuid.NewString()))
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ScoringDirError, "create scoring dir: %v", err)
	}

	if err := b.populate(ctx, dir, sub, grader); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func (b *Builder) populate(ctx context.Context, dir string, sub *model.Submission, grader *model.DataGrader) error {
	if err := b.copyBlob(ctx, grader.ScriptKey, filepath.Join(dir, ScriptFileName)); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringDirError, "fetch scoring script: %v", err)
	}
	if err := b.copyBlob(ctx, *sub.OutputKey, filepath.Join(dir, OutputFileName)); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringDirError, "fetch submission output: %v", err)
	}

	answerPath := filepath.Join(dir, AnswerFileName)
	if grader.AnswerKey != nil {
		if err := b.copyBlob(ctx, *grader.AnswerKey, answerPath); err != nil {
			return apperrors.Wrapf(err, apperrors.ScoringDirError, "fetch answer: %v", err)
		}
	} else if err := os.WriteFile(answerPath, nil, 0644); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringDirError, "create answer file: %v", err)
	}

	logPath := filepath.Join(dir, LogFileName)
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringDirError, "create scoring log: %v", err)
	}

	cfg := runner.ScoringConfig{
		WorkingDirectory: dir,
		ScoringScript:    filepath.Join(dir, ScriptFileName),
		UserOutput:       filepath.Join(dir, OutputFileName),
		Answer:           answerPath,
		ScoringLog:       logPath,
		TimeLimitMS:      grader.TimeLimitMS,
		MemoryLimitBytes: grader.MemoryLimitBytes,
		ScorerCommand:    b.ScorerCommand,
		SeccompProfile:   b.SeccompProfile,
	}
	if err := cfg.WriteTo(dir); err != nil {
		return apperrors.Wrapf(err, apperrors.ScoringDirError, "write scoring config: %v", err)
	}
	return nil
}

func (b *Builder) copyBlob(ctx context.Context, key, dest string) error {
	src, err := b.Blobs.Open(ctx, key)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
