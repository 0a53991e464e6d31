package model

import "time"

// ScoringStatus is the contestant-visible outcome of grading.
type ScoringStatus string

const (
	StatusWaiting  ScoringStatus = "waiting"
	StatusAccepted ScoringStatus = "accepted"
	StatusRejected ScoringStatus = "rejected"
	StatusError    ScoringStatus = "error"
)

// Default resource limits for a Data Grader.
const (
	DefaultTimeLimitMS      int64 = 1000
	DefaultMemoryLimitBytes int64 = 128 << 20
)

// ScoringScript is an immutable-by-replacement blob of scoring code.
type ScoringScript struct {
	ID        int64
	SourceKey string
	CreatedAt time.Time
}

// DataGrader bundles a scoring script with a reference answer and the
// resource limits the script runs under. AnswerKey may be nil transiently
// during contest setup.
type DataGrader struct {
	ID               int64
	ScoringScriptID  int64
	ScriptKey        string
	AnswerKey        *string
	TimeLimitMS      int64
	MemoryLimitBytes int64
}

// Submission is one participant output awaiting or having received a score.
// Score, ScoringStatus and ScoringMsg always mirror the last finished
// attempt, never an in-flight one.
type Submission struct {
	ID               int64
	CreatedAt        time.Time
	GraderID         int64
	OutputKey        *string
	NeedsGrading     bool
	NeedsGradingAt   *time.Time
	CurrentAttemptID *int64
	Score            *float64
	ScoringStatus    ScoringStatus
	ScoringMsg       string
}

// GradingAttempt is one execution of the pipeline against a Submission.
// It transitions to finished exactly once and never back.
type GradingAttempt struct {
	ID           int64
	SubmissionID int64
	CreatedAt    time.Time
	FinishedAt   *time.Time
	Started      bool
	Finished     bool
	// Succeeded reports whether the scorer runner itself exited cleanly.
	// A protocol violation in the scorer output still counts as succeeded
	// while leaving ScoringStatus = error.
	Succeeded     bool
	Aborted       bool
	Score         *float64
	ScoringStatus ScoringStatus
	ScoringMsg    string
	LogKey        string
}

// AttemptEventType distinguishes events on the attempt stream.
type AttemptEventType string

const (
	// AttemptEventFinished is published once per finished attempt.
	AttemptEventFinished AttemptEventType = "attempt.finished"
)

// AttemptEvent is the terminal status event published for consumers
// downstream of the pipeline (leaderboards, notifications).
type AttemptEvent struct {
	Type          AttemptEventType `json:"type"`
	AttemptID     int64            `json:"attempt_id"`
	SubmissionID  int64            `json:"submission_id"`
	ScoringStatus ScoringStatus    `json:"scoring_status"`
	Score         *float64         `json:"score,omitempty"`
	Aborted       bool             `json:"aborted"`
	CreatedAt     int64            `json:"created_at"`
}
