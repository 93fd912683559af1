package postgres

import (
	"context"
	"os"
	"testing"

	"fintrack/internal/storage/storetest"
)

// Runs only when FINTRACK_TEST_DATABASE_URL points at a disposable database.
func TestStore(t *testing.T) {
	url := os.Getenv("FINTRACK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FINTRACK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	defer s.Close()

	if _, err := s.pool.Exec(ctx, `TRUNCATE activity, transactions, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	storetest.Run(t, s)
}
