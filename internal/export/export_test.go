package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/xuri/excelize/v2"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Description: "Dinner, with friends", Amount: core.Money{Cents: 4250}, Type: core.Expense, Category: core.Dining, Date: core.NewDate(2024, 5, 3)},
		{ID: 2, Description: "Salary", Amount: core.Money{Cents: 300000}, Type: core.Income, Category: core.Other, Date: core.NewDate(2024, 5, 1)},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{" XLSX ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("ParseFormat(%q) err = %v, want ErrUnknownFormat", tt.in, err)
		}
	}
}

func TestFormatMetadata(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if got := FormatXLSX.FileName(now); got != "transactions_20240501.xlsx" {
		t.Errorf("FileName() = %q", got)
	}
	if !strings.HasPrefix(FormatCSV.ContentType(), "text/csv") {
		t.Errorf("ContentType() = %q", FormatCSV.ContentType())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sample()); err != nil {
		t.Fatalf("Write() err = %v", err)
	}
	want := "description,amount,type,date,category\n" +
		"\"Dinner, with friends\",42.50,expense,2024-05-03,dining\n" +
		"Salary,3000.00,income,2024-05-01,other\n"
	if buf.String() != want {
		t.Errorf("CSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteCSVReadsBackAsRFC4180(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("WriteCSV() err = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() err = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			t.Errorf("record %d has %d fields, want %d", i, len(rec), len(header))
		}
	}
	if records[1][0] != "Dinner, with friends" || records[1][1] != "42.50" {
		t.Errorf("record 1 = %v", records[1])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() err = %v", err)
	}
	if buf.String() != "description,amount,type,date,category\n" {
		t.Errorf("CSV = %q", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, sample()); err != nil {
		t.Fatalf("Write() err = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() err = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != sheetName {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() err = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "description" || rows[1][0] != "Dinner, with friends" || rows[2][2] != "income" {
		t.Errorf("rows = %v", rows)
	}
	raw, err := f.GetCellValue(sheetName, "B2", excelize.Options{RawCellValue: true})
	if err != nil || raw != "42.5" {
		t.Errorf("B2 = %q err=%v, want numeric 42.5", raw, err)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("pdf"), nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Write() err = %v", err)
	}
}
