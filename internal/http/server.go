package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/log"
	"spendlog/internal/services"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// ownerIDFromContext returns the authenticated user id set by requireAuth.
func ownerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ownerIDKey).(string)
	return id
}

// Server is the JSON API for the expense ledger.
type Server struct {
	http.Server
	gateway      *auth.Gateway
	ledger       *services.Ledger
	rateLimiter  *rateLimiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, gateway *auth.Gateway, ledger *services.Ledger, requestsPerMinute int, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		gateway:     gateway,
		ledger:      ledger,
		rateLimiter: newRateLimiter(requestsPerMinute),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.withCommon(s.handleSignup))
	mux.HandleFunc("POST /api/auth/login", s.withCommon(s.handleLogin))

	mux.HandleFunc("GET /api/expenses", s.withCommon(s.requireAuth(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withCommon(s.requireAuth(s.handleCreateExpense)))
	mux.HandleFunc("GET /api/expenses/starred", s.withCommon(s.requireAuth(s.handleListStarred)))
	mux.HandleFunc("GET /api/expenses/summary", s.withCommon(s.requireAuth(s.handleSummary)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withCommon(s.requireAuth(s.handleDeleteExpense)))
	mux.HandleFunc("PATCH /api/expenses/{id}/toggle-star", s.withCommon(s.requireAuth(s.handleToggleStar)))

	s.Handler = log.Middleware(s.logger)(mux)

	return s
}

// withCommon adds security headers, rate limiting and request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		ctx := r.Context()

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		// Mutating requests count against the per-IP budget; reads don't.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// requireAuth verifies the bearer credential and stores the user id in the
// request context. Verification is stateless; no store lookup happens here.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer credential"})
			return
		}

		userID, err := s.gateway.VerifyCredential(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
