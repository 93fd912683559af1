package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Store keeps everything in process memory. Data is lost on restart.
type Store struct {
	mu       sync.Mutex
	users    []core.User
	txs      []core.Transaction
	activity []core.Activity
	nextUser int64
	nextTx   int64
	nextAct  int64
	// ids of events whose activity was recorded
	events   map[string]bool
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return 0, fmt.Errorf("create user %q: %w", u.Username, core.ErrConflict)
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	ids, err := s.InsertTransactions(ctx, []core.Transaction{t})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertTransactions validates every row before storing any of them.
func (s *Store) InsertTransactions(_ context.Context, txs []core.Transaction) ([]int64, error) {
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	ids := make([]int64, 0, len(txs))
	for _, t := range txs {
		s.nextTx++
		t.ID = s.nextTx
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		s.txs = append(s.txs, t)
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	out := s.filter(func(t core.Transaction) bool { return t.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	out := s.filter(func(t core.Transaction) bool { return t.ID == id })
	if len(out) == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return out[0], nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id && t.UserID == userID {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) MonthTotals(_ context.Context, userID int64, month core.Month) (core.Money, core.Money, error) {
	var income, expenses core.Money
	for _, t := range s.filter(func(t core.Transaction) bool { return t.UserID == userID && month.Contains(t.Date) }) {
		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses, nil
}

func (s *Store) CategoryBreakdown(_ context.Context, userID int64, month core.Month) ([]core.CategoryAmount, error) {
	out := []core.CategoryAmount{}
	index := map[core.Category]int{}
	// s.txs is kept in id order, so first appearance follows insertion.
	for _, t := range s.filter(func(t core.Transaction) bool {
		return t.UserID == userID && t.Type == core.Expense && month.Contains(t.Date)
	}) {
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, core.CategoryAmount{Category: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.Cents > out[j].Amount.Cents })
	return out, nil
}

func (s *Store) RecentExpenses(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	out := s.filter(func(t core.Transaction) bool { return t.UserID == userID && t.Type == core.Expense })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RecordActivities(_ context.Context, eventID string, entries []core.Activity) ([]int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eventID != "" {
		if s.events[eventID] {
			return nil, false, nil
		}
		if s.events == nil {
			s.events = make(map[string]bool)
		}
		s.events[eventID] = true
	}
	now := time.Now().UTC()
	ids := make([]int64, 0, len(entries))
	for _, a := range entries {
		s.nextAct++
		a.ID = s.nextAct
		if a.OccurredAt.IsZero() {
			a.OccurredAt = now
		}
		s.activity = append(s.activity, a)
		ids = append(ids, a.ID)
	}
	return ids, true, nil
}

func (s *Store) ListActivity(_ context.Context, userID int64, limit int) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Activity{}
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activity[i].UserID == userID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}

func (s *Store) filter(keep func(core.Transaction) bool) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range s.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
