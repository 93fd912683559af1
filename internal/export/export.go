// Package export renders a user's transactions as CSV or XLSX.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Transactions"

// Header columns. CSV fields are quoted per RFC 4180 for spreadsheets; the
// upload endpoint splits on every comma and is not a reader for this format.
var header = []string{"description", "amount", "type", "date", "category"}

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts csv or xlsx; an empty string means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName returns e.g. transactions_20240501.csv.
func (f Format) FileName(now time.Time) string {
	return fmt.Sprintf("transactions_%s.%s", now.Format("20060102"), f)
}

func Write(w io.Writer, f Format, txs []core.Transaction) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, txs)
	case FormatXLSX:
		return WriteXLSX(w, txs)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
}

func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		if err := cw.Write(record(tx)); err != nil {
			return fmt.Errorf("write csv row %d: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}

	for i, tx := range txs {
		row := i + 2
		values := []any{
			tx.Description,
			tx.Amount.Decimal().InexactFloat64(),
			string(tx.Type),
			tx.Date.String(),
			string(tx.Category),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	if len(txs) > 0 {
		last, _ := excelize.CoordinatesToCellName(2, len(txs)+1)
		if err := f.SetCellStyle(sheetName, "B2", last, amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 40)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 10)
	f.SetColWidth(sheetName, "D", "D", 12)
	f.SetColWidth(sheetName, "E", "E", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func record(tx core.Transaction) []string {
	return []string{
		tx.Description,
		tx.Amount.String(),
		string(tx.Type),
		tx.Date.String(),
		string(tx.Category),
	}
}
