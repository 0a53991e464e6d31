package repository

import (
	"context"
	"database/sql"

	"evograder/internal/common/db"
	"evograder/internal/grading/model"
	apperrors "evograder/pkg/errors"
)

// MySQLRepository implements Repository on top of MySQL.
type MySQLRepository struct {
	db db.Database
}

func NewMySQLRepository(database db.Database) *MySQLRepository {
	return &MySQLRepository{db: database}
}

const submissionColumns = "id, created_at, grader_id, output_key, needs_grading, needs_grading_at, current_attempt_id, score, scoring_status, scoring_msg"

const attemptColumns = "id, submission_id, created_at, finished_at, started, finished, succeeded, aborted, score, scoring_status, scoring_msg, log_key"

func (r *MySQLRepository) ClaimNext(ctx context.Context) (*model.Submission, *model.GradingAttempt, error) {
	var (
		sub     *model.Submission
		attempt *model.GradingAttempt
	)
	err := r.db.Transaction(ctx, func(tx db.Transaction) error {
		row := tx.QueryRow(ctx, `
			SELECT `+submissionColumns+`
			FROM submissions
			WHERE needs_grading = TRUE
			ORDER BY needs_grading_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED`)
		s, err := scanSubmission(row)
		if db.IsNoRows(err) {
			return nil
		}
		if err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "claim submission: %v", err)
		}

		res, err := tx.Exec(ctx, `
			INSERT INTO grading_attempts
				(submission_id, created_at, scoring_status, scoring_msg, log_key)
			VALUES (?, NOW(6), ?, '', '')`,
			s.ID, model.StatusWaiting)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "create attempt: %v", err)
		}
		attemptID, err := res.LastInsertId()
		if err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "attempt id: %v", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE submissions
			SET needs_grading = FALSE, current_attempt_id = ?
			WHERE id = ?`,
			attemptID, s.ID); err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "mark claimed: %v", err)
		}

		s.NeedsGrading = false
		s.CurrentAttemptID = &attemptID
		sub = s

		row = tx.QueryRow(ctx, `SELECT `+attemptColumns+` FROM grading_attempts WHERE id = ?`, attemptID)
		attempt, err = scanAttempt(row)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "read attempt: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sub, attempt, nil
}

func (r *MySQLRepository) GetSubmission(ctx context.Context, id int64) (*model.Submission, error) {
	row := r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row)
	if db.IsNoRows(err) {
		return nil, apperrors.New(apperrors.SubmissionNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.DatabaseError, "get submission: %v", err)
	}
	return s, nil
}

func (r *MySQLRepository) GetGrader(ctx context.Context, id int64) (*model.DataGrader, error) {
	row := r.db.QueryRow(ctx, `
		SELECT g.id, g.scoring_script_id, s.source_key, g.answer_key,
		       g.time_limit_ms, g.memory_limit_bytes
		FROM data_graders g
		JOIN scoring_scripts s ON s.id = g.scoring_script_id
		WHERE g.id = ?`, id)

	var (
		g         model.DataGrader
		answerKey sql.NullString
	)
	err := row.Scan(&g.ID, &g.ScoringScriptID, &g.ScriptKey, &answerKey,
		&g.TimeLimitMS, &g.MemoryLimitBytes)
	if db.IsNoRows(err) {
		return nil, apperrors.New(apperrors.GraderNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.DatabaseError, "get grader: %v", err)
	}
	if answerKey.Valid {
		g.AnswerKey = &answerKey.String
	}
	return &g, nil
}

func (r *MySQLRepository) GetAttempt(ctx context.Context, id int64) (*model.GradingAttempt, error) {
	row := r.db.QueryRow(ctx, `SELECT `+attemptColumns+` FROM grading_attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if db.IsNoRows(err) {
		return nil, apperrors.New(apperrors.AttemptNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.DatabaseError, "get attempt: %v", err)
	}
	return a, nil
}

func (r *MySQLRepository) MarkStarted(ctx context.Context, attemptID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE grading_attempts SET started = TRUE WHERE id = ?`, attemptID)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DatabaseError, "mark started: %v", err)
	}
	return nil
}

func (r *MySQLRepository) IsAborted(ctx context.Context, attemptID int64) (bool, error) {
	var aborted bool
	err := r.db.QueryRow(ctx, `SELECT aborted FROM grading_attempts WHERE id = ?`, attemptID).Scan(&aborted)
	if db.IsNoRows(err) {
		return false, apperrors.New(apperrors.AttemptNotFound)
	}
	if err != nil {
		return false, apperrors.Wrapf(err, apperrors.DatabaseError, "read abort flag: %v", err)
	}
	return aborted, nil
}

func (r *MySQLRepository) AbortAttempt(ctx context.Context, attemptID int64) error {
	res, err := r.db.Exec(ctx, `
		UPDATE grading_attempts SET aborted = TRUE
		WHERE id = ? AND finished = FALSE`, attemptID)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DatabaseError, "abort attempt: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DatabaseError, "abort attempt: %v", err)
	}
	if affected == 0 {
		if _, err := r.GetAttempt(ctx, attemptID); err != nil {
			return err
		}
		return apperrors.New(apperrors.AttemptFinished)
	}
	return nil
}

func (r *MySQLRepository) FinishAttempt(ctx context.Context, attempt *model.GradingAttempt) error {
	return r.db.Transaction(ctx, func(tx db.Transaction) error {
		res, err := tx.Exec(ctx, `
			UPDATE grading_attempts
			SET finished = TRUE, finished_at = NOW(6), started = TRUE,
			    succeeded = ?, score = ?, scoring_status = ?, scoring_msg = ?, log_key = ?
			WHERE id = ? AND finished = FALSE`,
			attempt.Succeeded, nullFloat(attempt.Score), attempt.ScoringStatus,
			attempt.ScoringMsg, attempt.LogKey, attempt.ID)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "finish attempt: %v", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "finish attempt: %v", err)
		}
		if affected == 0 {
			row := tx.QueryRow(ctx, `SELECT finished FROM grading_attempts WHERE id = ?`, attempt.ID)
			var finished bool
			if err := row.Scan(&finished); db.IsNoRows(err) {
				return apperrors.New(apperrors.AttemptNotFound)
			} else if err != nil {
				return apperrors.Wrapf(err, apperrors.DatabaseError, "finish attempt: %v", err)
			}
			return apperrors.New(apperrors.AttemptFinished)
		}

		// Mirror onto the submission only while this is still the
		// current attempt; a superseded attempt finishing late leaves
		// the submission untouched.
		if _, err := tx.Exec(ctx, `
			UPDATE submissions
			SET score = ?, scoring_status = ?, scoring_msg = ?
			WHERE id = ? AND current_attempt_id = ?`,
			nullFloat(attempt.Score), attempt.ScoringStatus, attempt.ScoringMsg,
			attempt.SubmissionID, attempt.ID); err != nil {
			return apperrors.Wrapf(err, apperrors.DatabaseError, "propagate score: %v", err)
		}
		return nil
	})
}

func (r *MySQLRepository) RequestGrading(ctx context.Context, submissionID int64) error {
	res, err := r.db.Exec(ctx, `
		UPDATE submissions SET needs_grading = TRUE, needs_grading_at = NOW(6)
		WHERE id = ?`, submissionID)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DatabaseError, "request grading: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DatabaseError, "request grading: %v", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.SubmissionNotFound)
	}
	return nil
}

func (r *MySQLRepository) RequestGradingForGrader(ctx context.Context, graderID int64) (int64, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE submissions SET needs_grading = TRUE, needs_grading_at = NOW(6)
		WHERE grader_id = ?`, graderID)
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.DatabaseError, "request regrading: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.DatabaseError, "request regrading: %v", err)
	}
	return affected, nil
}

func scanSubmission(row db.Row) (*model.Submission, error) {
	var (
		s              model.Submission
		outputKey      sql.NullString
		needsGradingAt sql.NullTime
		currentAttempt sql.NullInt64
		score          sql.NullFloat64
	)
	err := row.Scan(&s.ID, &s.CreatedAt, &s.GraderID, &outputKey, &s.NeedsGrading,
		&needsGradingAt, &currentAttempt, &score, &s.ScoringStatus, &s.ScoringMsg)
	if err != nil {
		return nil, err
	}
	if outputKey.Valid {
		s.OutputKey = &outputKey.String
	}
	if needsGradingAt.Valid {
		t := needsGradingAt.Time
		s.NeedsGradingAt = &t
	}
	if currentAttempt.Valid {
		id := currentAttempt.Int64
		s.CurrentAttemptID = &id
	}
	if score.Valid {
		v := score.Float64
		s.Score = &v
	}
	return &s, nil
}

func scanAttempt(row db.Row) (*model.GradingAttempt, error) {
	var (
		a          model.GradingAttempt
		finishedAt sql.NullTime
		score      sql.NullFloat64
	)
	err := row.Scan(&a.ID, &a.SubmissionID, &a.CreatedAt, &finishedAt, &a.Started,
		&a.Finished, &a.Succeeded, &a.Aborted, &score, &a.ScoringStatus,
		&a.ScoringMsg, &a.LogKey)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		a.FinishedAt = &t
	}
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	return &a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
