package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	sheetmem "fintrack/internal/sheets/memory"
	"fintrack/internal/storage/memory"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func seed(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	id, err := store.InsertTransaction(context.Background(), core.Transaction{
		UserID:      1,
		Description: "Coffee beans",
		Amount:      core.Money{Cents: 450},
		Type:        core.Expense,
		Category:    core.Dining,
		Date:        core.NewDate(2024, 5, 3),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestHandleEvent(t *testing.T) {
	at := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		event       func(txID int64) *amqp.TransactionEvent
		wantSummary []string
		wantTxIDs   []int64
	}{
		{
			name: "created reads current state",
			event: func(txID int64) *amqp.TransactionEvent {
				return &amqp.TransactionEvent{ID: "e1", Type: amqp.EventCreated, UserID: 1, TransactionIDs: []int64{txID}, Count: 1, Timestamp: at}
			},
			wantSummary: []string{`Created expense "Coffee beans" 4.50 (dining)`},
			wantTxIDs:   []int64{1},
		},
		{
			name: "created but already gone",
			event: func(int64) *amqp.TransactionEvent {
				return &amqp.TransactionEvent{ID: "e2", Type: amqp.EventCreated, UserID: 1, TransactionIDs: []int64{99}, Count: 1, Timestamp: at}
			},
			wantSummary: []string{"Created transaction 99"},
			wantTxIDs:   []int64{99},
		},
		{
			name: "deleted",
			event: func(int64) *amqp.TransactionEvent {
				return &amqp.TransactionEvent{ID: "e3", Type: amqp.EventDeleted, UserID: 1, TransactionIDs: []int64{5}, Count: 1, Timestamp: at}
			},
			wantSummary: []string{"Deleted transaction 5"},
			wantTxIDs:   []int64{5},
		},
		{
			name: "import is one entry",
			event: func(int64) *amqp.TransactionEvent {
				return &amqp.TransactionEvent{ID: "e4", Type: amqp.EventImported, UserID: 1, TransactionIDs: []int64{7, 8, 9}, Count: 3, Timestamp: at}
			},
			wantSummary: []string{"Imported 3 transactions"},
			wantTxIDs:   []int64{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			txID := seed(t, store)
			mirror := sheetmem.New()
			w := NewActivityWorker(store, mirror, testLogger())

			if err := w.HandleEvent(context.Background(), tt.event(txID)); err != nil {
				t.Fatalf("HandleEvent: %v", err)
			}

			got, err := store.ListActivity(context.Background(), 1, 10)
			if err != nil {
				t.Fatalf("ListActivity: %v", err)
			}
			if len(got) != len(tt.wantSummary) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.wantSummary))
			}
			for i, a := range got {
				if a.Summary != tt.wantSummary[i] {
					t.Errorf("summary = %q, want %q", a.Summary, tt.wantSummary[i])
				}
				if a.TransactionID != tt.wantTxIDs[i] {
					t.Errorf("transaction id = %d, want %d", a.TransactionID, tt.wantTxIDs[i])
				}
				if !a.OccurredAt.Equal(at) {
					t.Errorf("occurred at = %v, want %v", a.OccurredAt, at)
				}
			}

			rows := mirror.Rows()
			if len(rows) != len(tt.wantSummary) {
				t.Fatalf("mirrored %d rows, want %d", len(rows), len(tt.wantSummary))
			}
			if rows[0].ID == 0 {
				t.Error("mirrored row should carry the stored id")
			}
		})
	}
}

func TestHandleEvent_MirrorFailureIsNotFatal(t *testing.T) {
	store := memory.New()
	mirror := sheetmem.New()
	mirror.FailWith(errors.New("sheets unavailable"))
	w := NewActivityWorker(store, mirror, testLogger())

	ev := amqp.NewTransactionEvent(amqp.EventDeleted, 1, []int64{3})
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got, _ := store.ListActivity(context.Background(), 1, 10)
	if len(got) != 1 {
		t.Fatalf("activity should be recorded despite mirror failure, got %d", len(got))
	}
}

func TestHandleEvent_WithoutMirror(t *testing.T) {
	store := memory.New()
	w := NewActivityWorker(store, nil, testLogger())

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventImported, 2, []int64{1, 2})); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	got, _ := store.ListActivity(context.Background(), 2, 10)
	if len(got) != 1 || got[0].Summary != "Imported 2 transactions" {
		t.Fatalf("unexpected activity %+v", got)
	}
}

type failingStore struct{ err error }

func (f failingStore) GetTransaction(context.Context, int64) (core.Transaction, error) {
	return core.Transaction{}, f.err
}

func (f failingStore) RecordActivities(context.Context, string, []core.Activity) ([]int64, bool, error) {
	return nil, false, f.err
}

func TestHandleEvent_StorageErrorsAreReturned(t *testing.T) {
	boom := errors.New("disk full")
	w := NewActivityWorker(failingStore{err: boom}, nil, testLogger())

	for _, typ := range []amqp.EventType{amqp.EventCreated, amqp.EventDeleted, amqp.EventImported} {
		err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(typ, 1, []int64{1}))
		if !errors.Is(err, boom) {
			t.Errorf("%s: expected %v, got %v", typ, boom, err)
		}
	}
}

func TestHandleEvent_RedeliveryRecordsOnce(t *testing.T) {
	store := memory.New()
	mirror := sheetmem.New()
	w := NewActivityWorker(store, mirror, testLogger())

	ev := amqp.NewTransactionEvent(amqp.EventDeleted, 1, []int64{3, 4})
	for i := 0; i < 2; i++ {
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	got, _ := store.ListActivity(context.Background(), 1, 10)
	if len(got) != 2 {
		t.Fatalf("got %d entries after redelivery, want 2", len(got))
	}
	if rows := mirror.Rows(); len(rows) != 2 {
		t.Errorf("mirrored %d rows after redelivery, want 2", len(rows))
	}

	other := amqp.NewTransactionEvent(amqp.EventDeleted, 1, []int64{3})
	if err := w.HandleEvent(context.Background(), other); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if got, _ := store.ListActivity(context.Background(), 1, 10); len(got) != 3 {
		t.Errorf("a new event for the same transaction should still be recorded, got %d entries", len(got))
	}
}

func TestHandleEvent_UnknownType(t *testing.T) {
	w := NewActivityWorker(memory.New(), nil, testLogger())
	err := w.HandleEvent(context.Background(), &amqp.TransactionEvent{Type: "renamed", UserID: 1})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
