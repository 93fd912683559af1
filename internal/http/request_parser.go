// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading request bodies and query
// parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

const maxJSONBodyBytes = 1 << 20

var errInvalidBody = core.NewValidationError("Invalid request body")

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// top-level fields as trimmed strings. JSON numbers keep their exact text.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxJSONBodyBytes from r.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object and as a form
// otherwise. Any failure is reported as a validation error.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errInvalidBody, p.err)
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errInvalidBody, err)
			return p.err
		}
		return nil
	}
	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '[' {
		p.err = errInvalidBody
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errInvalidBody, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims whitespace and drops control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parsePathID reads a positive integer path value.
func parsePathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewNotFoundError("Transaction not found")
	}
	return id, nil
}

// parseMonthParam reads ?month=YYYY-MM, falling back to fallback when absent.
func parseMonthParam(query url.Values, fallback core.Month) (core.Month, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return fallback, nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Month{}, core.NewValidationError("Month must be in YYYY-MM format")
	}
	return m, nil
}

// parseLimitParam reads ?limit=N. Zero means "use the default".
func parseLimitParam(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, core.NewValidationError("Limit must be a non-negative integer")
	}
	return n, nil
}

// isMaxBytesError reports whether err came from an http.MaxBytesReader limit.
func isMaxBytesError(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
