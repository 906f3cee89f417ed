// Package http exposes the JSON API: auth, categories, expenses, budget,
// and the spending summary.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
	"spendtrack/internal/filter"
	"spendtrack/internal/ratelimit"
	"spendtrack/internal/services"
	"spendtrack/internal/summary"
)

// Store is the direct storage surface of the handlers: accounts,
// categories, and budgets. Expense writes go through the expense service
// instead so cache invalidation and events happen in one place.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64, cascade bool) (int64, error)
	GetMonthlyBudget(ctx context.Context, userID int64) (core.Money, error)
	SetMonthlyBudget(ctx context.Context, userID int64, budget core.Money) error
	Ping(ctx context.Context) error
}

// SummaryService computes cached summaries. summary.Service satisfies it.
type SummaryService interface {
	ListSummary(ctx context.Context, userID int64, params filter.Params) (summary.Result, error)
	InvalidateUser(ctx context.Context, userID int64)
	InvalidateAll(ctx context.Context)
}

type Server struct {
	http.Server
	store        Store
	expenses     *services.ExpenseService
	summaries    SummaryService
	tokens       *auth.Manager
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, store Store, expenses *services.ExpenseService, summaries SummaryService, tokens *auth.Manager, limiter *ratelimit.Limiter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:     store,
		expenses:  expenses,
		summaries: summaries,
		tokens:    tokens,
		limiter:   limiter,
	}

	authed := tokens.Middleware(func(w http.ResponseWriter, r *http.Request, reason string) {
		writeError(w, http.StatusUnauthorized, reason)
	})
	protect := func(h http.HandlerFunc) http.Handler {
		return s.withRequestLog(authed(h))
	}
	public := func(h http.HandlerFunc) http.Handler {
		return s.withRequestLog(h)
	}

	mux.Handle("GET /healthz", public(handleHealth))
	mux.Handle("GET /readyz", public(s.handleReady))

	mux.Handle("POST /api/auth/register", public(s.handleRegister))
	mux.Handle("POST /api/auth/login", public(s.handleLogin))
	mux.Handle("GET /api/auth/budget", protect(s.handleGetBudget))
	mux.Handle("PUT /api/auth/budget", protect(s.handleSetBudget))

	mux.Handle("GET /api/categories", protect(s.handleListCategories))
	mux.Handle("POST /api/categories", protect(s.limited(ratelimit.ScopeExpenseMutation, s.handleCreateCategory)))
	mux.Handle("DELETE /api/categories/{id}", protect(s.limited(ratelimit.ScopeExpenseMutation, s.handleDeleteCategory)))

	mux.Handle("GET /api/expenses", protect(s.handleListExpenses))
	mux.Handle("GET /api/expenses/{id}", protect(s.handleGetExpense))
	mux.Handle("POST /api/expenses", protect(s.limited(ratelimit.ScopeExpenseMutation, s.handleCreateExpense)))
	mux.Handle("PUT /api/expenses/{id}", protect(s.limited(ratelimit.ScopeExpenseMutation, s.handleUpdateExpense)))
	mux.Handle("DELETE /api/expenses/{id}", protect(s.limited(ratelimit.ScopeExpenseMutation, s.handleDeleteExpense)))
	mux.Handle("GET /api/expenses/summary", protect(s.limited(ratelimit.ScopeSummaryRead, s.handleSummary)))

	return s
}

// limited enforces the per-user budget for one rate limit scope. It runs
// after the auth middleware, so the user id is always present.
func (s *Server) limited(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserID(r.Context())
		if err := s.limiter.Check(userID, scope); errors.Is(err, ratelimit.ErrLimited) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"user_id", userID, "error", err, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next(w, r)
	}
}

// withRequestLog adds security headers, a request ID, and start/finish
// logging around each request.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logFn := slog.InfoContext
		if rw.statusCode >= 500 {
			logFn = slog.ErrorContext
		} else if rw.statusCode >= 400 {
			logFn = slog.WarnContext
		}
		logFn(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			slog.InfoContext(ctx, "Rate limiter stopped",
				"active_clients", s.limiter.ActiveClients(),
				"limit_hits", s.limiter.LimitHits())
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
