package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqlitePragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLiteRepository implements Store on top of a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + sqlitePragmas
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("create user %q: %w", u.Username, core.ErrConflict)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

const insertTransactionSQL = `INSERT INTO transactions
	(user_id, description, amount_cents, type, category, date, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	ids, err := r.InsertTransactions(ctx, []core.Transaction{t})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertTransactionSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]int64, 0, len(txs))
	for i, t := range txs {
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		res, err := stmt.ExecContext(ctx, t.UserID, t.Description, t.Amount.Cents,
			string(t.Type), string(t.Category), t.Date.String(), formatTime(created))
		if err != nil {
			return nil, fmt.Errorf("insert transaction %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ids, nil
}

const selectTransactionSQL = `SELECT id, user_id, description, amount_cents, type, category, date, created_at FROM transactions`

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		selectTransactionSQL+` WHERE user_id = ? ORDER BY date DESC, id ASC`, userID)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	txs, err := r.queryTransactions(ctx, selectTransactionSQL+` WHERE id = ?`, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return txs[0], nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MonthTotals(ctx context.Context, userID int64, month core.Month) (core.Money, core.Money, error) {
	start, end := month.Bounds()
	var income, expenses int64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, start.String(), end.String()).Scan(&income, &expenses)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("month totals: %w", err)
	}
	return core.Money{Cents: income}, core.Money{Cents: expenses}, nil
}

func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, userID int64, month core.Month) ([]core.CategoryAmount, error) {
	start, end := month.Bounds()
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total, MIN(id) AS first_id
		FROM transactions
		WHERE user_id = ? AND type = 'expense' AND date >= ? AND date < ?
		GROUP BY category
		ORDER BY total DESC, first_id ASC`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var (
			category string
			total    int64
			firstID  int64
		)
		if err := rows.Scan(&category, &total, &firstID); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, core.CategoryAmount{Category: core.Category(category), Amount: core.Money{Cents: total}})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		selectTransactionSQL+` WHERE user_id = ? AND type = 'expense' ORDER BY date DESC, id DESC LIMIT ?`,
		userID, limit)
}

func (r *SQLiteRepository) RecordActivities(ctx context.Context, eventID string, entries []core.Activity) ([]int64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if eventID != "" {
		var seen bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM activity WHERE event_id = ?)`, eventID).Scan(&seen); err != nil {
			return nil, false, fmt.Errorf("check event %s: %w", eventID, err)
		}
		if seen {
			return nil, false, nil
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO activity (user_id, action, transaction_id, summary, occurred_at, event_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, false, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]int64, 0, len(entries))
	for i, a := range entries {
		if a.OccurredAt.IsZero() {
			a.OccurredAt = now
		}
		res, err := stmt.ExecContext(ctx, a.UserID, a.Action, a.TransactionID, a.Summary, formatTime(a.OccurredAt), eventID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("record activity %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, false, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit activity: %w", err)
	}
	return ids, true, nil
}

func (r *SQLiteRepository) ListActivity(ctx context.Context, userID int64, limit int) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, transaction_id, summary, occurred_at
		FROM activity WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := []core.Activity{}
	for rows.Next() {
		var (
			a        core.Activity
			occurred string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.TransactionID, &a.Summary, &occurred); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		a.OccurredAt = parseTime(occurred)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t                   core.Transaction
			txType, cat         string
			dateStr, createdStr string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &txType, &cat, &dateStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("transaction %d has malformed date %q: %w", t.ID, dateStr, err)
		}
		t.Type = core.TransactionType(txType)
		t.Category = core.Category(cat)
		t.Date = d
		t.CreatedAt = parseTime(createdStr)
		out = append(out, t)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
