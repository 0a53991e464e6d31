// Package controller exposes the operator HTTP surface of a grading
// worker: health, attempt inspection, abort and rejudge. The contestant
// web front end lives elsewhere; this is only what operating the
// pipeline needs.
package controller

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"evograder/internal/grading/model"
	"evograder/internal/grading/repository"
	"evograder/internal/grading/service"
	apperrors "evograder/pkg/errors"
	"evograder/pkg/utils/response"
)

type OpsController struct {
	repo repository.Repository
	logs *service.LogStore
}

func NewOpsController(repo repository.Repository, logs *service.LogStore) *OpsController {
	return &OpsController{repo: repo, logs: logs}
}

// RegisterRoutes mounts all ops endpoints on the engine.
func (ctl *OpsController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", ctl.Health)

	api := r.Group("/api/v1")
	api.GET("/attempts/:id", ctl.GetAttempt)
	api.GET("/attempts/:id/log", ctl.GetAttemptLog)
	api.POST("/attempts/:id/abort", ctl.AbortAttempt)
	api.GET("/submissions/:id", ctl.GetSubmission)
	api.POST("/submissions/:id/rejudge", ctl.RejudgeSubmission)
	api.POST("/graders/:id/rejudge", ctl.RejudgeGrader)
}

func (ctl *OpsController) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// attemptView is the wire shape of a grading attempt.
type attemptView struct {
	ID            int64               `json:"id"`
	SubmissionID  int64               `json:"submission_id"`
	CreatedAt     time.Time           `json:"created_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	Started       bool                `json:"started"`
	Finished      bool                `json:"finished"`
	Succeeded     bool                `json:"succeeded"`
	Aborted       bool                `json:"aborted"`
	Score         *float64            `json:"score,omitempty"`
	ScoringStatus model.ScoringStatus `json:"scoring_status"`
	ScoringMsg    string              `json:"scoring_msg"`
	HasLog        bool                `json:"has_log"`
}

func newAttemptView(a *model.GradingAttempt) attemptView {
	return attemptView{
		ID:            a.ID,
		SubmissionID:  a.SubmissionID,
		CreatedAt:     a.CreatedAt,
		FinishedAt:    a.FinishedAt,
		Started:       a.Started,
		Finished:      a.Finished,
		Succeeded:     a.Succeeded,
		Aborted:       a.Aborted,
		Score:         a.Score,
		ScoringStatus: a.ScoringStatus,
		ScoringMsg:    a.ScoringMsg,
		HasLog:        a.LogKey != "",
	}
}

type submissionView struct {
	ID             int64               `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	GraderID       int64               `json:"grader_id"`
	NeedsGrading   bool                `json:"needs_grading"`
	CurrentAttempt *int64              `json:"current_attempt_id,omitempty"`
	Score          *float64            `json:"score,omitempty"`
	ScoringStatus  model.ScoringStatus `json:"scoring_status"`
	ScoringMsg     string              `json:"scoring_msg"`
}

func (ctl *OpsController) GetAttempt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	attempt, err := ctl.repo.GetAttempt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newAttemptView(attempt))
}

func (ctl *OpsController) GetAttemptLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	attempt, err := ctl.repo.GetAttempt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if attempt.LogKey == "" {
		response.Error(c, apperrors.New(apperrors.BlobNotFound))
		return
	}
	data, err := ctl.logs.Fetch(c.Request.Context(), attempt.LogKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(200, "text/plain; charset=utf-8", data)
}

func (ctl *OpsController) AbortAttempt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := ctl.repo.AbortAttempt(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"attempt_id": id, "aborted": true})
}

func (ctl *OpsController) GetSubmission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sub, err := ctl.repo.GetSubmission(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submissionView{
		ID:            sub.ID,
		CreatedAt:     sub.CreatedAt,
		GraderID:      sub.GraderID,
		NeedsGrading:  sub.NeedsGrading,
		CurrentAttempt: sub.CurrentAttemptID,
		Score:         sub.Score,
		ScoringStatus: sub.ScoringStatus,
		ScoringMsg:    sub.ScoringMsg,
	})
}

func (ctl *OpsController) RejudgeSubmission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := ctl.repo.RequestGrading(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"submission_id": id, "queued": true})
}

func (ctl *OpsController) RejudgeGrader(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	n, err := ctl.repo.RequestGradingForGrader(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"grader_id": id, "queued": n})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperrors.BadRequest("invalid id"))
		return 0, false
	}
	return id, true
}
