package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"evograder/internal/grading/model"
	apperrors "evograder/pkg/errors"
)

// MemoryRepository is a mutex-guarded Repository for tests and local
// development. Semantics mirror the MySQL implementation, including the
// finish-once and current-attempt guards.
type MemoryRepository struct {
	mu sync.Mutex

	graders     map[int64]*model.DataGrader
	submissions map[int64]*model.Submission
	attempts    map[int64]*model.GradingAttempt

	nextSubmissionID int64
	nextAttemptID    int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		graders:     make(map[int64]*model.DataGrader),
		submissions: make(map[int64]*model.Submission),
		attempts:    make(map[int64]*model.GradingAttempt),
	}
}

// AddGrader seeds a grader, assigning defaults for unset limits.
func (r *MemoryRepository) AddGrader(g model.DataGrader) *model.DataGrader {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.TimeLimitMS == 0 {
		g.TimeLimitMS = model.DefaultTimeLimitMS
	}
	if g.MemoryLimitBytes == 0 {
		g.MemoryLimitBytes = model.DefaultMemoryLimitBytes
	}
	r.graders[g.ID] = &g
	return &g
}

// AddSubmission seeds a pending submission for the grader and returns it.
func (r *MemoryRepository) AddSubmission(graderID int64, outputKey string) *model.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSubmissionID++
	now := time.Now()
	s := &model.Submission{
		ID:             r.nextSubmissionID,
		CreatedAt:      now,
		GraderID:       graderID,
		OutputKey:      &outputKey,
		NeedsGrading:   true,
		NeedsGradingAt: &now,
		ScoringStatus:  model.StatusWaiting,
	}
	r.submissions[s.ID] = s
	return s
}

func (r *MemoryRepository) ClaimNext(ctx context.Context) (*model.Submission, *model.GradingAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*model.Submission, 0)
	for _, s := range r.submissions {
		if s.NeedsGrading {
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		return nil, nil, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		at, bt := timeOrZero(a.NeedsGradingAt), timeOrZero(b.NeedsGradingAt)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.ID < b.ID
	})
	s := pending[0]

	r.nextAttemptID++
	attempt := &model.GradingAttempt{
		ID:            r.nextAttemptID,
		SubmissionID:  s.ID,
		CreatedAt:     time.Now(),
		ScoringStatus: model.StatusWaiting,
	}
	r.attempts[attempt.ID] = attempt

	s.NeedsGrading = false
	id := attempt.ID
	s.CurrentAttemptID = &id

	subCopy := *s
	attemptCopy := *attempt
	return &subCopy, &attemptCopy, nil
}

func (r *MemoryRepository) GetSubmission(ctx context.Context, id int64) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, apperrors.New(apperrors.SubmissionNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) GetGrader(ctx context.Context, id int64) (*model.DataGrader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.graders[id]
	if !ok {
		return nil, apperrors.New(apperrors.GraderNotFound)
	}
	cp := *g
	return &cp, nil
}

func (r *MemoryRepository) GetAttempt(ctx context.Context, id int64) (*model.GradingAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, apperrors.New(apperrors.AttemptNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) MarkStarted(ctx context.Context, attemptID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return apperrors.New(apperrors.AttemptNotFound)
	}
	a.Started = true
	return nil
}

func (r *MemoryRepository) IsAborted(ctx context.Context, attemptID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return false, apperrors.New(apperrors.AttemptNotFound)
	}
	return a.Aborted, nil
}

func (r *MemoryRepository) AbortAttempt(ctx context.Context, attemptID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return apperrors.New(apperrors.AttemptNotFound)
	}
	if a.Finished {
		return apperrors.New(apperrors.AttemptFinished)
	}
	a.Aborted = true
	return nil
}

func (r *MemoryRepository) FinishAttempt(ctx context.Context, attempt *model.GradingAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attempts[attempt.ID]
	if !ok {
		return apperrors.New(apperrors.AttemptNotFound)
	}
	if a.Finished {
		return apperrors.New(apperrors.AttemptFinished)
	}

	now := time.Now()
	a.Finished = true
	a.FinishedAt = &now
	a.Started = true
	a.Succeeded = attempt.Succeeded
	a.Score = copyFloat(attempt.Score)
	a.ScoringStatus = attempt.ScoringStatus
	a.ScoringMsg = attempt.ScoringMsg
	a.LogKey = attempt.LogKey

	s, ok := r.submissions[attempt.SubmissionID]
	if ok && s.CurrentAttemptID != nil && *s.CurrentAttemptID == attempt.ID {
		s.Score = copyFloat(attempt.Score)
		s.ScoringStatus = attempt.ScoringStatus
		s.ScoringMsg = attempt.ScoringMsg
	}
	return nil
}

func (r *MemoryRepository) RequestGrading(ctx context.Context, submissionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[submissionID]
	if !ok {
		return apperrors.New(apperrors.SubmissionNotFound)
	}
	now := time.Now()
	s.NeedsGrading = true
	s.NeedsGradingAt = &now
	return nil
}

func (r *MemoryRepository) RequestGradingForGrader(ctx context.Context, graderID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for _, s := range r.submissions {
		if s.GraderID == graderID {
			s.NeedsGrading = true
			t := now
			s.NeedsGradingAt = &t
			n++
		}
	}
	return n, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
