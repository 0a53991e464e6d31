package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"evograder/internal/common/mq"
	"evograder/internal/grading/model"
	apperrors "evograder/pkg/errors"
)

type fakeProducer struct {
	topics   []string
	messages []*mq.Message
	err      error
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestPublishFinished(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewAttemptEventPublisher(producer, "grading.attempts")

	score := 42.0
	attempt := &model.GradingAttempt{
		ID:            7,
		SubmissionID:  3,
		Score:         &score,
		ScoringStatus: model.StatusAccepted,
	}
	if err := pub.PublishFinished(context.Background(), attempt); err != nil {
		t.Fatal(err)
	}

	if len(producer.messages) != 1 || producer.topics[0] != "grading.attempts" {
		t.Fatalf("published %d messages on %v", len(producer.messages), producer.topics)
	}
	if got := producer.messages[0].ID; got != "3" {
		t.Fatalf("partition key = %q, want submission id", got)
	}

	var event model.AttemptEvent
	if err := json.Unmarshal(producer.messages[0].Body, &event); err != nil {
		t.Fatal(err)
	}
	if event.Type != model.AttemptEventFinished || event.AttemptID != 7 || event.SubmissionID != 3 {
		t.Fatalf("event = %+v", event)
	}
	if event.Score == nil || *event.Score != 42 || event.ScoringStatus != model.StatusAccepted {
		t.Fatalf("event = %+v", event)
	}
}

func TestPublishFinishedError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	pub := NewAttemptEventPublisher(producer, "grading.attempts")

	err := pub.PublishFinished(context.Background(), &model.GradingAttempt{ID: 1, SubmissionID: 2})
	if !apperrors.Is(err, apperrors.PublishFailed) {
		t.Fatalf("err = %v", err)
	}
}
