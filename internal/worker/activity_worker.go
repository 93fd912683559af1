package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// Store is the part of the storage layer the worker needs.
type Store interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	RecordActivities(ctx context.Context, eventID string, entries []core.Activity) ([]int64, bool, error)
}

// ActivityWorker turns transaction events into activity entries and
// optionally mirrors each entry to a spreadsheet.
type ActivityWorker struct {
	store  Store
	mirror sheets.ActivityWriter
	logger *log.Logger
	now    func() time.Time
}

// NewActivityWorker creates a worker. mirror may be nil.
func NewActivityWorker(store Store, mirror sheets.ActivityWriter, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ActivityWorker{
		store:  store,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleEvent records the activity described by ev. All entries of an event
// are written together, and a redelivered event is recorded once. A storage
// failure is returned so the message is redelivered; a mirror failure is
// only logged.
func (w *ActivityWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldEventID, ev.ID,
		log.FieldEventType, ev.Type,
		log.FieldUserID, ev.UserID,
		log.FieldCount, ev.Count)

	entries, err := w.entriesFor(ctx, ev)
	if err != nil {
		return err
	}

	ids, recorded, err := w.store.RecordActivities(ctx, ev.ID, entries)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	if !recorded {
		w.logger.InfoContext(ctx, "Event already recorded, skipping",
			log.FieldEventID, ev.ID,
			log.FieldUserID, ev.UserID)
		return nil
	}

	for i, a := range entries {
		a.ID = ids[i]
		w.mirrorActivity(ctx, ev, a)
	}
	return nil
}

func (w *ActivityWorker) entriesFor(ctx context.Context, ev *amqp.TransactionEvent) ([]core.Activity, error) {
	at := ev.Timestamp
	if at.IsZero() {
		at = w.now().UTC()
	}
	base := core.Activity{UserID: ev.UserID, Action: string(ev.Type), OccurredAt: at}

	switch ev.Type {
	case amqp.EventImported:
		a := base
		a.Summary = fmt.Sprintf("Imported %d transactions", ev.Count)
		return []core.Activity{a}, nil

	case amqp.EventDeleted:
		out := make([]core.Activity, 0, len(ev.TransactionIDs))
		for _, id := range ev.TransactionIDs {
			a := base
			a.TransactionID = id
			a.Summary = fmt.Sprintf("Deleted transaction %d", id)
			out = append(out, a)
		}
		return out, nil

	case amqp.EventCreated:
		out := make([]core.Activity, 0, len(ev.TransactionIDs))
		for _, id := range ev.TransactionIDs {
			a := base
			a.TransactionID = id
			summary, err := w.describeCreated(ctx, id)
			if err != nil {
				return nil, err
			}
			a.Summary = summary
			out = append(out, a)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// describeCreated reads the current state of the transaction. It may have
// been deleted before the event was consumed.
func (w *ActivityWorker) describeCreated(ctx context.Context, id int64) (string, error) {
	t, err := w.store.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Sprintf("Created transaction %d", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("get transaction %d: %w", id, err)
	}
	return fmt.Sprintf("Created %s %q %s (%s)", t.Type, t.Description, t.Amount, t.Category), nil
}

func (w *ActivityWorker) mirrorActivity(ctx context.Context, ev *amqp.TransactionEvent, a core.Activity) {
	if w.mirror == nil {
		return
	}
	if err := w.mirror.AppendActivity(ctx, a); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror activity",
			log.FieldError, err,
			log.FieldEventID, ev.ID,
			log.FieldUserID, a.UserID)
	}
}
