package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// maxDescriptionLen counts characters, not bytes.
	maxDescriptionLen = 255
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Month identifies a calendar month, e.g. 2024-05.
	Month struct {
		Year  int
		Month time.Month
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Description string
		Amount      Money
		Type        TransactionType
		Category    Category
		Date        Date
		CreatedAt   time.Time
	}

	// Activity is one entry of a user's audit trail, written by the worker.
	Activity struct {
		ID            int64
		UserID        int64
		Action        string
		TransactionID int64
		Summary       string
		OccurredAt    time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
)

// ParseTransactionType accepts income or expense in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(dateLayout) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseMonth parses a strict YYYY-MM month.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(monthLayout) {
		return Month{}, ErrInvalidMonth
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format(monthLayout)
}

// Contains reports whether d falls in m.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

// Bounds returns the first day of m and the first day of the following month.
func (m Month) Bounds() (Date, Date) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: start}, Date{Time: start.AddDate(0, 1, 0)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}
