package services

import (
	"errors"
	"strings"

	"fintrack/internal/core"
)

// User-facing reasons shared by direct entry and CSV import.
const (
	reasonRequired    = "All fields are required"
	reasonAmount      = "Amount must be a positive number"
	reasonType        = "Type must be 'income' or 'expense'"
	reasonDate        = "Date must be a valid date in YYYY-MM-DD format"
	reasonDescription = "Description must be at most 255 characters"
)

type fields struct {
	amount core.Money
	typ    core.TransactionType
	date   core.Date
}

// parseFields checks amount, type and date in that order and returns the
// reason of the first failure.
func parseFields(amount, typ, date string) (fields, string) {
	var f fields
	var err error

	if f.amount, err = core.ParseAmount(amount); err != nil {
		return fields{}, reasonAmount
	}
	if f.typ, err = core.ParseTransactionType(typ); err != nil {
		return fields{}, reasonType
	}
	if f.date, err = core.ParseDate(date); err != nil {
		return fields{}, reasonDate
	}
	return f, ""
}

func newTransaction(userID int64, description string, f fields, c *core.Classifier) (core.Transaction, string) {
	tx := core.Transaction{
		UserID:      userID,
		Description: description,
		Amount:      f.amount,
		Type:        f.typ,
		Category:    c.Classify(description),
		Date:        f.date,
	}
	if err := tx.Validate(); err != nil {
		if errors.Is(err, core.ErrDescriptionTooLong) {
			return core.Transaction{}, reasonDescription
		}
		return core.Transaction{}, err.Error()
	}
	return tx, ""
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
