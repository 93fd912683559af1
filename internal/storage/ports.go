package storage

import (
	"context"

	"fintrack/internal/core"
)

// Ports implemented by every persistence backend (sqlite, postgres, memory).
type (
	UserStore interface {
		// CreateUser returns core.ErrConflict when username or email is taken.
		CreateUser(ctx context.Context, u core.User) (int64, error)
		// GetUserByUsername returns core.ErrNotFound for unknown users.
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
	}

	TransactionStore interface {
		InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error)
		// InsertTransactions writes all rows in one storage transaction; on
		// failure nothing is written.
		InsertTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error)
		// ListTransactions orders by date descending, then by id ascending.
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		// GetTransaction returns core.ErrNotFound for unknown ids.
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		// DeleteTransaction reports whether a row owned by userID was removed.
		DeleteTransaction(ctx context.Context, id, userID int64) (bool, error)
	}

	AnalyticsReader interface {
		// MonthTotals sums income and expenses of a user within month.
		MonthTotals(ctx context.Context, userID int64, month core.Month) (income, expenses core.Money, err error)
		// CategoryBreakdown sums expenses per category within month, largest
		// first; ties keep the order in which categories first appeared.
		CategoryBreakdown(ctx context.Context, userID int64, month core.Month) ([]core.CategoryAmount, error)
		// RecentExpenses returns the latest expenses regardless of month,
		// newest date first, ties broken by id descending.
		RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
	}

	ActivityStore interface {
		// RecordActivities writes the entries of one event in a single storage
		// transaction. When eventID already has entries nothing is written and
		// recorded is false. An empty eventID is never deduplicated.
		RecordActivities(ctx context.Context, eventID string, entries []core.Activity) (ids []int64, recorded bool, err error)
		// ListActivity returns the newest entries first.
		ListActivity(ctx context.Context, userID int64, limit int) ([]core.Activity, error)
	}

	// Store is the full persistence surface used by the services.
	Store interface {
		UserStore
		TransactionStore
		AnalyticsReader
		ActivityStore
		Ping(ctx context.Context) error
		Close() error
	}
)
