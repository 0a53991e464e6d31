// Package repository persists submissions, graders and grading attempts.
// The MySQL implementation is the production one; the in-memory
// implementation backs tests and local development.
package repository

import (
	"context"

	"evograder/internal/grading/model"
)

// Repository is the record-store contract of the grading pipeline. All
// read-modify-write sequences happen inside transactions with row
// locking, so concurrent workers can share one database.
type Repository interface {
	// ClaimNext atomically claims the oldest submission with
	// needs_grading set, creates a fresh attempt for it, points
	// current_attempt_id at the new attempt and clears needs_grading.
	// Returns (nil, nil, nil) when no work is pending. Two concurrent
	// callers never receive the same submission.
	ClaimNext(ctx context.Context) (*model.Submission, *model.GradingAttempt, error)

	GetSubmission(ctx context.Context, id int64) (*model.Submission, error)
	GetGrader(ctx context.Context, id int64) (*model.DataGrader, error)
	GetAttempt(ctx context.Context, id int64) (*model.GradingAttempt, error)

	// MarkStarted records that the attempt's scoring process was
	// launched. Idempotent.
	MarkStarted(ctx context.Context, attemptID int64) error

	// IsAborted re-reads the attempt's abort flag. The orchestrator
	// polls this between waits on the scoring process.
	IsAborted(ctx context.Context, attemptID int64) (bool, error)

	// AbortAttempt requests a cooperative stop of a running attempt.
	// Fails with AttemptFinished once the attempt is finished.
	AbortAttempt(ctx context.Context, attemptID int64) error

	// FinishAttempt persists the attempt's terminal fields exactly once
	// and mirrors score, scoring_status and scoring_msg onto the owning
	// submission, but only while the submission's current_attempt_id
	// still points at this attempt. A second call for an already
	// finished attempt fails with AttemptFinished and leaves everything
	// untouched.
	FinishAttempt(ctx context.Context, attempt *model.GradingAttempt) error

	// RequestGrading marks one submission as pending, stamping a fresh
	// needs_grading_at so it queues behind already pending work.
	RequestGrading(ctx context.Context, submissionID int64) error

	// RequestGradingForGrader re-queues every submission of a grader
	// and returns how many were marked.
	RequestGradingForGrader(ctx context.Context, graderID int64) (int64, error)
}
