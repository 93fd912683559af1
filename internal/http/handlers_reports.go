package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"fintrack/internal/export"
	"fintrack/internal/log"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), s.deps.Analytics.CurrentMonth())
	if err != nil {
		writeError(w, r, "analytics", err)
		return
	}

	report, err := s.deps.Analytics.Compute(r.Context(), identity(r).UserID, month)
	if err != nil {
		writeError(w, r, "analytics", err)
		return
	}
	NewJSONResponse().Body(newAnalyticsView(report)).Write(w)
}

// handleExport streams the caller's transactions as CSV or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		BadRequestError("Format must be 'csv' or 'xlsx'").Write(w)
		return
	}

	userID := identity(r).UserID
	txs, err := s.deps.Transactions.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, "export", err)
		return
	}

	// Render fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, txs); err != nil {
		writeError(w, r, "export", fmt.Errorf("render %s export: %w", format, err))
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transactions exported",
		log.FieldUserID, userID,
		log.FieldCount, len(txs),
		"format", string(format))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitParam(r.URL.Query())
	if err != nil {
		writeError(w, r, "activity", err)
		return
	}
	entries, err := s.deps.Activity.List(r.Context(), identity(r).UserID, limit)
	if err != nil {
		writeError(w, r, "activity", err)
		return
	}
	NewJSONResponse().Body(newActivityViews(entries)).Write(w)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		ErrorResponse(http.StatusServiceUnavailable, "Live updates are not enabled").Write(w)
		return
	}
	userID := identity(r).UserID
	if err := s.deps.Hub.ServeWS(w, r, userID); err != nil {
		// The upgrader has already answered the client.
		log.FromContext(r.Context()).WithComponent(log.ComponentNotify).DebugContext(r.Context(), "WebSocket upgrade failed",
			log.FieldUserID, userID, log.FieldError, err)
	}
}

