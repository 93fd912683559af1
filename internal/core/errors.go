package core

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the request boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error carries a user-facing message together with its kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewAuthError(msg string) error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg, Err: ErrNotFound}
}

func NewConflictError(msg string) error {
	return &Error{Kind: KindConflict, Message: msg, Err: ErrConflict}
}

// ImportError reports the first CSV row that failed validation.
// Row is 1-based and counts the header line as row 1.
type ImportError struct {
	Row    int
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// KindOf maps err onto the error taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var ie *ImportError
	switch {
	case errors.As(err, &ie):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidMonth),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrDescriptionTooLong):
		return KindValidation
	default:
		return KindInternal
	}
}

// Message returns the user-facing text for err. Internal errors get a
// generic message so storage details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInternal {
			return "Internal server error"
		}
		return e.Message
	}
	if KindOf(err) == KindInternal {
		return "Internal server error"
	}
	return err.Error()
}
