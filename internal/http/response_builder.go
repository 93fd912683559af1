// Package http exposes the JSON API over net/http.
//
// This file implements the builder used by every handler to produce JSON
// responses with consistent headers and error bodies.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message is shorthand for a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(map[string]any{"message": msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(map[string]any{"error": message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", "Bearer")
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// statusFor maps an error kind onto an HTTP status. Conflicts are reported
// as 400 like any other rejected input.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation, core.KindConflict:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts err into a JSON error response. Internal errors are
// logged with their details and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var importErr *core.ImportError
	if errors.As(err, &importErr) {
		NewJSONResponse().
			Status(http.StatusBadRequest).
			Body(map[string]any{"error": "Error processing file: " + importErr.Error(), "row": importErr.Row}).
			Write(w)
		return
	}

	if errors.Is(err, auth.ErrInvalidToken) {
		UnauthorizedError("Invalid token").Write(w)
		return
	}

	kind := core.KindOf(err)
	if kind == core.KindInternal {
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation,
			log.NewFields().WithErrorType(kind.String()))
		InternalServerError().Write(w)
		return
	}

	resp := ErrorResponse(statusFor(kind), core.Message(err))
	if kind == core.KindAuth {
		resp.Header("WWW-Authenticate", "Bearer")
	}
	resp.Write(w)
}
