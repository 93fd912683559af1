package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated  EventType = "created"
	EventDeleted  EventType = "deleted"
	EventImported EventType = "imported"
)

// TransactionEvent announces a change to a user's transactions. It carries
// ids only; consumers read current state from storage.
type TransactionEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	UserID         int64     `json:"user_id"`
	TransactionIDs []int64   `json:"transaction_ids"`
	Count          int       `json:"count"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewTransactionEvent(eventType EventType, userID int64, ids []int64) *TransactionEvent {
	if ids == nil {
		ids = []int64{}
	}
	return &TransactionEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		UserID:         userID,
		TransactionIDs: ids,
		Count:          len(ids),
		Timestamp:      time.Now().UTC(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventCreated, EventDeleted, EventImported:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.UserID <= 0 {
		return nil, errors.New("event without user id")
	}
	return &ev, nil
}
