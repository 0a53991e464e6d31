package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"evograder/internal/common/mq"
	"evograder/internal/grading/model"
	apperrors "evograder/pkg/errors"
)

// AttemptEventPublisher emits one terminal event per finished attempt on
// the event stream. Events are keyed by submission id so consumers see a
// submission's attempts in order.
type AttemptEventPublisher struct {
	producer mq.Producer
	topic    string
}

func NewAttemptEventPublisher(producer mq.Producer, topic string) *AttemptEventPublisher {
	return &AttemptEventPublisher{producer: producer, topic: topic}
}

// PublishFinished publishes the attempt-finished event. The attempt must
// already carry its terminal fields.
func (p *AttemptEventPublisher) PublishFinished(ctx context.Context, attempt *model.GradingAttempt) error {
	event := model.AttemptEvent{
		Type:          model.AttemptEventFinished,
		AttemptID:     attempt.ID,
		SubmissionID:  attempt.SubmissionID,
		ScoringStatus: attempt.ScoringStatus,
		Score:         attempt.Score,
		Aborted:       attempt.Aborted,
		CreatedAt:     time.Now().Unix(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.PublishFailed, "marshal attempt event: %v", err)
	}
	msg := mq.NewMessage(body)
	msg.ID = strconv.FormatInt(attempt.SubmissionID, 10)
	if err := p.producer.Publish(ctx, p.topic, msg); err != nil {
		return apperrors.Wrapf(err, apperrors.PublishFailed, "publish attempt event: %v", err)
	}
	return nil
}
