package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"consumer channel closed", errors.New("message channel closed"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "transaction_events"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should be closed initially")
		}
	})

	t.Run("failures below threshold keep circuit closed", func(t *testing.T) {
		for i := 0; i < maxFailures-1; i++ {
			client.recordFailure()
		}
		if client.isCircuitOpen() {
			t.Error("circuit opened before reaching maxFailures")
		}
	})

	t.Run("reaching threshold opens circuit", func(t *testing.T) {
		client.recordFailure()
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after maxFailures")
		}
	})

	t.Run("success resets", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("recordSuccess() did not reset the breaker")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Fatal("circuit should let a probe through after openTimeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Fatal("state should be half-open")
		}
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "transaction_events"}
	ev := NewTransactionEvent(EventCreated, 1, []int64{10})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := client.PublishTransactionEvent(ctx, ev); !errors.Is(err, context.Canceled) {
			t.Errorf("PublishTransactionEvent() err = %v, want context.Canceled", err)
		}
	})

	t.Run("open circuit", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()
		err := client.PublishTransactionEvent(context.Background(), ev)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("PublishTransactionEvent() err = %v, want ErrCircuitOpen", err)
		}
	})
}

func TestNewTransactionEvent(t *testing.T) {
	ev := NewTransactionEvent(EventImported, 3, []int64{4, 5, 6})
	if ev.ID == "" || ev.Type != EventImported || ev.UserID != 3 || ev.Count != 3 {
		t.Errorf("NewTransactionEvent() = %+v", ev)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}

	empty := NewTransactionEvent(EventDeleted, 3, nil)
	body, _ := empty.ToJSON()
	if !strings.Contains(string(body), `"transaction_ids":[]`) {
		t.Errorf("nil ids should encode as an empty array, got %s", body)
	}
}

func TestTransactionEventFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"id":"a","type":"created","user_id":1,"transaction_ids":[2],"count":1}`, false},
		{"malformed", `{"id":`, true},
		{"unknown type", `{"id":"a","type":"updated","user_id":1}`, true},
		{"missing user", `{"id":"a","type":"deleted"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := TransactionEventFromJSON([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("TransactionEventFromJSON() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (ev.UserID != 1 || len(ev.TransactionIDs) != 1) {
				t.Errorf("TransactionEventFromJSON() = %+v", ev)
			}
		})
	}
}
