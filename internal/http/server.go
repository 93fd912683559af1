package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/notify"
	"fintrack/internal/services"
)

// Pinger is satisfied by every storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStats is satisfied by cache.LRUCache.
type CacheStats interface {
	Stats() cache.Stats
}

// Dependencies are the collaborators the handlers call into. Hub and
// ReportCache are optional.
type Dependencies struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Imports      *services.ImportService
	Analytics    *services.AnalyticsService
	Activity     *services.ActivityService
	Tokens       *auth.TokenIssuer
	Store        Pinger
	Hub          *notify.Hub
	ReportCache  CacheStats
	Logger       *log.Logger
}

// Options tune the HTTP surface.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	AllowedOrigins []string
	RateLimit      int
	TrustedProxies []string
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated atomic.Int64
	transactionsDeleted atomic.Int64
	rowsImported        atomic.Int64
}

type Server struct {
	http.Server

	deps           Dependencies
	logger         *log.Logger
	maxUploadBytes int64
	now            func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s := &Server{
		deps:             deps,
		logger:           logger.WithComponent(log.ComponentHTTP),
		maxUploadBytes:   opts.MaxUploadBytes,
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /register", s.public(s.handleRegister))
	mux.Handle("POST /login", s.public(s.handleLogin))

	mux.Handle("GET /transactions", s.protected(s.handleListTransactions))
	mux.Handle("POST /transactions", s.protected(s.handleCreateTransaction))
	mux.Handle("DELETE /transactions/{id}", s.protected(s.handleDeleteTransaction))
	mux.Handle("GET /analytics", s.protected(s.handleAnalytics))
	mux.Handle("POST /upload", s.protected(s.handleUpload))
	mux.Handle("GET /export", s.protected(s.handleExport))
	mux.Handle("GET /activity", s.protected(s.handleActivity))
	mux.Handle("GET /ws", s.limited(auth.Middleware(deps.Tokens, true, s.onAuthFailure)(http.HandlerFunc(s.handleWebSocket))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})

	var handler http.Handler = mux
	handler = s.screen(handler)
	handler = security.CORS(opts.AllowedOrigins)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// public applies rate limiting only.
func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.limited(h)
}

// protected applies rate limiting and bearer token authentication.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.limited(auth.Middleware(s.deps.Tokens, false, s.onAuthFailure)(h))
}

func (s *Server) limited(h http.Handler) http.Handler {
	return s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(h)
}

func (s *Server) onAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).DebugContext(r.Context(), "Authentication failed", log.FieldError, err)
	UnauthorizedError("Invalid token").Write(w)
}

// screen rejects requests that look like scans or injection probes.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request blocked",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldUserAgent, r.Header.Get("User-Agent"))
			ErrorResponse(http.StatusForbidden, "Forbidden").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// identity returns the authenticated caller. Only called behind protected.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}
