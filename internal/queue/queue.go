package queue

import (
	"context"
)

const (
	// TriggerQueue carries dispatch trigger messages from the API to the
	// worker.
	TriggerQueue = "dispatch.trigger"

	// TriggerDLQ receives rejected trigger messages.
	TriggerDLQ = "dlq.dispatch.trigger"
)

// Publisher publishes dispatch trigger messages.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DispatchMessage) error
	Close() error
}

// MessageHandler handles a consumed trigger message.
type MessageHandler func(ctx context.Context, msg DispatchMessage) error

// Consumer consumes dispatch trigger messages.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
