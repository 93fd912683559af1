// Package postgres implements storage.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// New connects to databaseURL, applies migrations and returns a ready store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RunMigrations applies the embedded schema through a short-lived database/sql handle.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) (int64, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("create user %q: %w", u.Username, core.ErrConflict)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	ids, err := s.InsertTransactions(ctx, []core.Transaction{t})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

const insertTransactionSQL = `INSERT INTO transactions
	(user_id, description, amount_cents, type, category, date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

// InsertTransactions sends every row in a single pgx batch inside one transaction.
func (s *Store) InsertTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, t := range txs {
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		batch.Queue(insertTransactionSQL, t.UserID, t.Description, t.Amount.Cents,
			string(t.Type), string(t.Category), t.Date.Time, created)
	}

	br := tx.SendBatch(ctx, batch)
	ids := make([]int64, 0, len(txs))
	for i := range txs {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			br.Close()
			return nil, fmt.Errorf("insert transaction %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ids, nil
}

const selectTransactionSQL = `SELECT id, user_id, description, amount_cents, type, category, date, created_at FROM transactions`

func (s *Store) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, selectTransactionSQL+` WHERE user_id = $1 ORDER BY date DESC, id ASC`, userID)
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	txs, err := s.queryTransactions(ctx, selectTransactionSQL+` WHERE id = $1`, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return txs[0], nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MonthTotals(ctx context.Context, userID int64, month core.Month) (core.Money, core.Money, error) {
	start, end := month.Bounds()
	var income, expenses int64
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE type = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3`,
		userID, start.Time, end.Time).Scan(&income, &expenses)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("month totals: %w", err)
	}
	return core.Money{Cents: income}, core.Money{Cents: expenses}, nil
}

func (s *Store) CategoryBreakdown(ctx context.Context, userID int64, month core.Month) ([]core.CategoryAmount, error) {
	start, end := month.Bounds()
	rows, err := s.pool.Query(ctx, `
		SELECT category, SUM(amount_cents)::BIGINT AS total
		FROM transactions
		WHERE user_id = $1 AND type = 'expense' AND date >= $2 AND date < $3
		GROUP BY category
		ORDER BY total DESC, MIN(id) ASC`,
		userID, start.Time, end.Time)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var (
			category string
			total    int64
		)
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, core.CategoryAmount{Category: core.Category(category), Amount: core.Money{Cents: total}})
	}
	return out, rows.Err()
}

func (s *Store) RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		selectTransactionSQL+` WHERE user_id = $1 AND type = 'expense' ORDER BY date DESC, id DESC LIMIT $2`,
		userID, limit)
}

const insertActivitySQL = `
	INSERT INTO activity (user_id, action, transaction_id, summary, occurred_at, event_id)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

// RecordActivities sends the entries of one event as a single pgx batch
// inside one transaction.
func (s *Store) RecordActivities(ctx context.Context, eventID string, entries []core.Activity) ([]int64, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if eventID != "" {
		var seen bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM activity WHERE event_id = $1)`, eventID).Scan(&seen); err != nil {
			return nil, false, fmt.Errorf("check event %s: %w", eventID, err)
		}
		if seen {
			return nil, false, nil
		}
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, a := range entries {
		if a.OccurredAt.IsZero() {
			a.OccurredAt = now
		}
		batch.Queue(insertActivitySQL, a.UserID, a.Action, a.TransactionID, a.Summary, a.OccurredAt, eventID)
	}

	br := tx.SendBatch(ctx, batch)
	ids := make([]int64, 0, len(entries))
	for i := range entries {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			br.Close()
			// A concurrent consumer recorded the same event first.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("record activity %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	if err := br.Close(); err != nil {
		return nil, false, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit activity: %w", err)
	}
	return ids, true, nil
}

func (s *Store) ListActivity(ctx context.Context, userID int64, limit int) ([]core.Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, action, transaction_id, summary, occurred_at
		FROM activity WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := []core.Activity{}
	for rows.Next() {
		var a core.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.TransactionID, &a.Summary, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t           core.Transaction
			txType, cat string
			date        time.Time
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &txType, &cat, &date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Type = core.TransactionType(txType)
		t.Category = core.Category(cat)
		t.Date = core.DateOf(date)
		out = append(out, t)
	}
	return out, rows.Err()
}
