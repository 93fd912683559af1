package services

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
)

// notifier fans a committed mutation out to listeners and the event bus.
// Neither step can fail the mutation; the data is already stored.
type notifier struct {
	publisher EventPublisher
	listeners []ChangeListener
	logger    *log.Logger
}

func (n *notifier) changed(ctx context.Context, eventType amqp.EventType, userID int64, ids []int64) {
	for _, l := range n.listeners {
		l.TransactionsChanged(ctx, userID)
	}

	if n.publisher == nil {
		n.logger.WarnContext(ctx, "AMQP client not available, skipping event",
			log.FieldEventType, eventType, log.FieldUserID, userID)
		return
	}

	ev := amqp.NewTransactionEvent(eventType, userID, ids)
	if err := n.publisher.PublishTransactionEvent(ctx, ev); err != nil {
		n.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldError, err,
			log.FieldEventID, ev.ID,
			log.FieldEventType, eventType,
			log.FieldUserID, userID)
	}
}

func orDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(log.DefaultConfig())
	}
	return logger
}
