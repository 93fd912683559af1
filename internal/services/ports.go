package services

import (
	"context"

	"fintrack/internal/amqp"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// ChangeListener is told after a user's transactions were modified.
type ChangeListener interface {
	TransactionsChanged(ctx context.Context, userID int64)
}
