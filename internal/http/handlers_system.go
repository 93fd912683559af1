package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the storage backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Store == nil {
		checks["storage"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "check", "storage", "error", err)
		checks["storage"] = "failed"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	if s.deps.ReportCache != nil {
		checks["analytics_cache"] = map[string]any{"entries": s.deps.ReportCache.Stats().Size, "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.GetMetrics().ClientCount, "status": "ok"}

	NewJSONResponse().
		Status(httpStatus).
		Body(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_server_errors_total", "Total number of 5xx responses", traceMetrics.ServerErrors)
	gauge("http_request_duration_avg_seconds", "Average request duration", traceMetrics.AverageResponseTime.Seconds())

	counter("transactions_created_total", "Transactions created through the API", s.appMetrics.transactionsCreated.Load())
	counter("transactions_deleted_total", "Transactions deleted through the API", s.appMetrics.transactionsDeleted.Load())
	counter("transactions_imported_total", "Transactions imported from CSV uploads", s.appMetrics.rowsImported.Load())

	if s.deps.ReportCache != nil {
		stats := s.deps.ReportCache.Stats()
		counter("analytics_cache_hits_total", "Analytics cache hits", stats.Hits)
		counter("analytics_cache_misses_total", "Analytics cache misses", stats.Misses)
		gauge("analytics_cache_entries", "Current analytics cache entries", float64(stats.Size))
	}
	if s.deps.Hub != nil {
		gauge("websocket_clients", "Connected websocket clients", float64(s.deps.Hub.ClientCount()))
	}

	counter("rate_limit_allowed_total", "Requests admitted by the rate limiter", rateLimitMetrics.Allowed)
	counter("rate_limit_rejected_total", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("invalid_client_ip_total", "Forwarded client addresses that failed to parse", securityMetrics.InvalidIPAttempts)

	gauge("uptime_seconds", "Application uptime in seconds", time.Since(s.appMetrics.uptime).Truncate(time.Second).Seconds())
}
