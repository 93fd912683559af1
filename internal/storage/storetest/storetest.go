// Package storetest holds a behavioural suite shared by every storage backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Run exercises s against the storage.Store contract. s must be empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", "alice@example.com")
	bob := mustCreateUser(t, s, "bob", "bob@example.com")

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := s.CreateUser(ctx, core.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
		if !errors.Is(err, core.ErrConflict) {
			t.Fatalf("CreateUser() err = %v, want ErrConflict", err)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := s.CreateUser(ctx, core.User{Username: "carol", Email: "bob@example.com", PasswordHash: "x"})
		if !errors.Is(err, core.ErrConflict) {
			t.Fatalf("CreateUser() err = %v, want ErrConflict", err)
		}
	})

	t.Run("lookup user", func(t *testing.T) {
		u, err := s.GetUserByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUserByUsername() err = %v", err)
		}
		if u.ID != alice || u.Email != "alice@example.com" || u.PasswordHash != "hash" {
			t.Errorf("GetUserByUsername() = %+v", u)
		}
		if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetUserByUsername(nobody) err = %v, want ErrNotFound", err)
		}
	})

	may := core.Month{Year: 2024, Month: 5}
	ids, err := s.InsertTransactions(ctx, []core.Transaction{
		tx(alice, "Salary", 300000, core.Income, core.Other, core.NewDate(2024, 5, 1)),
		tx(alice, "Walmart", 5000, core.Expense, core.Groceries, core.NewDate(2024, 5, 3)),
		tx(alice, "Uber ride", 2000, core.Expense, core.Transportation, core.NewDate(2024, 5, 3)),
		tx(alice, "Netflix", 2000, core.Expense, core.Entertainment, core.NewDate(2024, 5, 20)),
		tx(alice, "Rent April", 100000, core.Expense, core.Utilities, core.NewDate(2024, 4, 30)),
		tx(bob, "Coffee", 450, core.Expense, core.Dining, core.NewDate(2024, 5, 2)),
	})
	if err != nil {
		t.Fatalf("InsertTransactions() err = %v", err)
	}
	if len(ids) != 6 {
		t.Fatalf("InsertTransactions() returned %d ids, want 6", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not increasing: %v", ids)
		}
	}

	t.Run("list orders by date desc then id asc", func(t *testing.T) {
		list, err := s.ListTransactions(ctx, alice)
		if err != nil {
			t.Fatalf("ListTransactions() err = %v", err)
		}
		want := []string{"Netflix", "Walmart", "Uber ride", "Salary", "Rent April"}
		assertDescriptions(t, list, want)
		if list[0].Amount.Cents != 2000 || list[0].Category != core.Entertainment || list[0].Date.String() != "2024-05-20" {
			t.Errorf("ListTransactions()[0] = %+v", list[0])
		}
	})

	t.Run("list is empty for unknown user", func(t *testing.T) {
		list, err := s.ListTransactions(ctx, 9999)
		if err != nil {
			t.Fatalf("ListTransactions() err = %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("ListTransactions() = %#v, want empty non-nil slice", list)
		}
	})

	t.Run("month totals", func(t *testing.T) {
		income, expenses, err := s.MonthTotals(ctx, alice, may)
		if err != nil {
			t.Fatalf("MonthTotals() err = %v", err)
		}
		if income.Cents != 300000 || expenses.Cents != 9000 {
			t.Errorf("MonthTotals() = %d/%d, want 300000/9000", income.Cents, expenses.Cents)
		}
		income, expenses, err = s.MonthTotals(ctx, alice, core.Month{Year: 2023, Month: 1})
		if err != nil || income.Cents != 0 || expenses.Cents != 0 {
			t.Errorf("MonthTotals(empty) = %d/%d err=%v", income.Cents, expenses.Cents, err)
		}
	})

	t.Run("category breakdown sorts by total then first appearance", func(t *testing.T) {
		got, err := s.CategoryBreakdown(ctx, alice, may)
		if err != nil {
			t.Fatalf("CategoryBreakdown() err = %v", err)
		}
		want := []core.CategoryAmount{
			{Category: core.Groceries, Amount: core.Money{Cents: 5000}},
			{Category: core.Transportation, Amount: core.Money{Cents: 2000}},
			{Category: core.Entertainment, Amount: core.Money{Cents: 2000}},
		}
		if len(got) != len(want) {
			t.Fatalf("CategoryBreakdown() = %+v, want %+v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("CategoryBreakdown()[%d] = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("recent expenses span months", func(t *testing.T) {
		got, err := s.RecentExpenses(ctx, alice, 3)
		if err != nil {
			t.Fatalf("RecentExpenses() err = %v", err)
		}
		assertDescriptions(t, got, []string{"Netflix", "Uber ride", "Walmart"})

		all, _ := s.RecentExpenses(ctx, alice, 10)
		assertDescriptions(t, all, []string{"Netflix", "Uber ride", "Walmart", "Rent April"})
	})

	t.Run("get and delete respect ownership", func(t *testing.T) {
		got, err := s.GetTransaction(ctx, ids[1])
		if err != nil || got.Description != "Walmart" || got.UserID != alice {
			t.Fatalf("GetTransaction() = %+v err=%v", got, err)
		}

		deleted, err := s.DeleteTransaction(ctx, ids[1], bob)
		if err != nil || deleted {
			t.Fatalf("DeleteTransaction(other user) = %v err=%v, want false", deleted, err)
		}
		deleted, err = s.DeleteTransaction(ctx, ids[1], alice)
		if err != nil || !deleted {
			t.Fatalf("DeleteTransaction() = %v err=%v, want true", deleted, err)
		}
		deleted, err = s.DeleteTransaction(ctx, ids[1], alice)
		if err != nil || deleted {
			t.Fatalf("DeleteTransaction(again) = %v err=%v, want false", deleted, err)
		}
		if _, err := s.GetTransaction(ctx, ids[1]); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetTransaction(deleted) err = %v, want ErrNotFound", err)
		}
	})

	t.Run("single insert", func(t *testing.T) {
		id, err := s.InsertTransaction(ctx, tx(bob, "Pharmacy", 1299, core.Expense, core.Healthcare, core.NewDate(2024, 6, 1)))
		if err != nil || id <= ids[len(ids)-1] {
			t.Fatalf("InsertTransaction() = %d err=%v", id, err)
		}
		list, _ := s.ListTransactions(ctx, bob)
		assertDescriptions(t, list, []string{"Pharmacy", "Coffee"})
	})

	t.Run("activity newest first", func(t *testing.T) {
		for _, action := range []string{"created", "deleted", "imported"} {
			if _, _, err := s.RecordActivities(ctx, "", []core.Activity{{UserID: alice, Action: action, Summary: action}}); err != nil {
				t.Fatalf("RecordActivities() err = %v", err)
			}
		}
		if _, _, err := s.RecordActivities(ctx, "", []core.Activity{{UserID: bob, Action: "created", Summary: "bob"}}); err != nil {
			t.Fatalf("RecordActivities() err = %v", err)
		}
		got, err := s.ListActivity(ctx, alice, 2)
		if err != nil {
			t.Fatalf("ListActivity() err = %v", err)
		}
		if len(got) != 2 || got[0].Action != "imported" || got[1].Action != "deleted" {
			t.Fatalf("ListActivity() = %+v", got)
		}
		if got[0].OccurredAt.IsZero() {
			t.Error("ListActivity() OccurredAt not set")
		}
	})

	t.Run("activity recorded once per event", func(t *testing.T) {
		entries := []core.Activity{
			{UserID: bob, Action: "deleted", TransactionID: 11, Summary: "Deleted transaction 11"},
			{UserID: bob, Action: "deleted", TransactionID: 12, Summary: "Deleted transaction 12"},
		}
		ids, recorded, err := s.RecordActivities(ctx, "evt-1", entries)
		if err != nil || !recorded || len(ids) != 2 || ids[1] <= ids[0] {
			t.Fatalf("RecordActivities() = %v, %v, err=%v", ids, recorded, err)
		}
		ids, recorded, err = s.RecordActivities(ctx, "evt-1", entries)
		if err != nil || recorded || len(ids) != 0 {
			t.Fatalf("RecordActivities(again) = %v, %v, err=%v", ids, recorded, err)
		}
		got, err := s.ListActivity(ctx, bob, 10)
		if err != nil {
			t.Fatalf("ListActivity() err = %v", err)
		}
		if len(got) != 3 || got[0].TransactionID != 12 || got[1].TransactionID != 11 {
			t.Errorf("ListActivity() = %+v", got)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping() err = %v", err)
		}
	})
}

func mustCreateUser(t *testing.T, s storage.Store, username, email string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), core.User{Username: username, Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser(%s) err = %v", username, err)
	}
	return id
}

func tx(userID int64, desc string, cents int64, typ core.TransactionType, cat core.Category, date core.Date) core.Transaction {
	return core.Transaction{
		UserID:      userID,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        typ,
		Category:    cat,
		Date:        date,
	}
}

func assertDescriptions(t *testing.T, got []core.Transaction, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d transactions, want %d (%v)", len(got), len(want), want)
	}
	for i := range want {
		if got[i].Description != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i].Description, want[i])
		}
	}
}
