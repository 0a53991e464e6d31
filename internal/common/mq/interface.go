package mq

import "context"

// Producer defines the interface for publishing messages. The grading
// pipeline is publish-only: downstream consumers (leaderboards, notifiers)
// subscribe elsewhere.
type Producer interface {
	// Publish publishes a message to the specified topic.
	Publish(ctx context.Context, topic string, message *Message) error

	// Close closes the producer connection.
	Close() error
}

// Message represents a message on the stream.
type Message struct {
	// ID is used as the partition key so events for one submission
	// stay ordered.
	ID string `json:"id"`

	// Body is the message payload.
	Body []byte `json:"body"`
}

// NewMessage creates a message with the given payload.
func NewMessage(body []byte) *Message {
	return &Message{Body: body}
}
