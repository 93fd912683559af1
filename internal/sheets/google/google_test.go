package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing spreadsheet", Config{CredentialsJSON: "{}"}, "missing GOOGLE_SPREADSHEET_ID"},
		{"missing credentials", Config{SpreadsheetID: "sheet-1"}, "missing service account credentials"},
		{"unreadable file", Config{SpreadsheetID: "sheet-1", CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}, "read service account file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCredentials_PrefersInlineJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := loadCredentials(Config{CredentialsJSON: `{"from":"env"}`, CredentialsFile: file})
	if err != nil || string(got) != `{"from":"env"}` {
		t.Fatalf("inline json: got %q, %v", got, err)
	}

	got, err = loadCredentials(Config{CredentialsFile: file})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file: got %q, %v", got, err)
	}
}

func TestActivityRow(t *testing.T) {
	at := time.Date(2024, 5, 3, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	row := activityRow(core.Activity{UserID: 7, Action: "created", TransactionID: 42, Summary: "Coffee 4.50", OccurredAt: at})
	want := []any{"2024-05-03T08:30:00Z", int64(7), "created", int64(42), "Coffee 4.50"}
	if len(row) != len(want) {
		t.Fatalf("row has %d cells, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d = %#v, want %#v", i, row[i], want[i])
		}
	}

	batch := activityRow(core.Activity{UserID: 7, Action: "imported", Summary: "Imported 3 transactions", OccurredAt: at})
	if batch[3] != "" {
		t.Errorf("batch entry should leave the transaction cell empty, got %#v", batch[3])
	}
}

func TestAppendActivity(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  gsheet.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Activity!A2:E2","updatedRows":1}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	c := NewWithService(svc, "sheet-1", "", log.New(log.Config{Output: io.Discard}))
	err = c.AppendActivity(context.Background(), core.Activity{
		UserID:        3,
		Action:        "deleted",
		TransactionID: 9,
		Summary:       "Deleted transaction 9",
		OccurredAt:    time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if !strings.Contains(gotPath, "sheet-1") || !strings.Contains(gotPath, "Activity!A:E") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") || !strings.Contains(gotQuery, "insertDataOption=INSERT_ROWS") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != 5 {
		t.Fatalf("unexpected body %+v", gotBody.Values)
	}
	if gotBody.Values[0][2] != "deleted" || gotBody.Values[0][4] != "Deleted transaction 9" {
		t.Errorf("unexpected row %+v", gotBody.Values[0])
	}
}

func TestAppendActivity_NoService(t *testing.T) {
	c := &Client{sheetName: defaultSheetName}
	if err := c.AppendActivity(context.Background(), core.Activity{UserID: 1}); err == nil {
		t.Fatal("expected error without a service")
	}
}
