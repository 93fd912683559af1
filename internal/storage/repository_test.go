package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/storetest"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() err = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storetest.Run(t, newTestRepo(t))
}

func TestSQLiteRepositoryReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() err = %v", err)
	}
	uid, err := repo.CreateUser(ctx, core.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser() err = %v", err)
	}
	if _, err := repo.InsertTransaction(ctx, core.Transaction{
		UserID: uid, Description: "Coffee", Amount: core.Money{Cents: 350},
		Type: core.Expense, Category: core.Dining, Date: core.NewDate(2024, 1, 2),
	}); err != nil {
		t.Fatalf("InsertTransaction() err = %v", err)
	}
	repo.Close()

	// Migrations must be idempotent on an existing file.
	repo, err = storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen err = %v", err)
	}
	defer repo.Close()
	list, err := repo.ListTransactions(ctx, uid)
	if err != nil || len(list) != 1 || list[0].Amount.Cents != 350 {
		t.Fatalf("ListTransactions() = %+v err=%v", list, err)
	}
}

func TestSQLiteRepositoryBatchIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	uid, err := repo.CreateUser(ctx, core.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser() err = %v", err)
	}

	good := core.Transaction{UserID: uid, Description: "ok", Amount: core.Money{Cents: 100},
		Type: core.Expense, Category: core.Other, Date: core.NewDate(2024, 1, 1)}
	bad := good
	bad.Amount = core.Money{Cents: -5}

	if _, err := repo.InsertTransactions(ctx, []core.Transaction{good, bad}); err == nil {
		t.Fatal("InsertTransactions() with a negative amount succeeded")
	}
	list, err := repo.ListTransactions(ctx, uid)
	if err != nil {
		t.Fatalf("ListTransactions() err = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("batch partially written: %+v", list)
	}
}

func TestSQLiteRepositoryActivityBatchIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	uid, err := repo.CreateUser(ctx, core.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser() err = %v", err)
	}

	// The second entry violates the users foreign key.
	entries := []core.Activity{
		{UserID: uid, Action: "deleted", TransactionID: 1, Summary: "Deleted transaction 1"},
		{UserID: uid + 100, Action: "deleted", TransactionID: 2, Summary: "Deleted transaction 2"},
	}
	if _, _, err := repo.RecordActivities(ctx, "evt-1", entries); err == nil {
		t.Fatal("RecordActivities() with an unknown user succeeded")
	}
	if got, _ := repo.ListActivity(ctx, uid, 10); len(got) != 0 {
		t.Fatalf("batch partially written: %+v", got)
	}

	// The failed attempt must not mark the event as seen.
	entries[1].UserID = uid
	if _, recorded, err := repo.RecordActivities(ctx, "evt-1", entries); err != nil || !recorded {
		t.Fatalf("retry = %v, err=%v", recorded, err)
	}
	if got, _ := repo.ListActivity(ctx, uid, 10); len(got) != 2 {
		t.Errorf("ListActivity() after retry = %+v", got)
	}
}
