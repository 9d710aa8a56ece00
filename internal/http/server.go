// Package http exposes the nutrition log over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nutrilog/internal/bridge"
	applog "nutrilog/internal/log"
	"nutrilog/internal/session"
)

// Server wraps http.Server with the application state handlers need.
type Server struct {
	http.Server
	bridge  *bridge.Bridge
	goals   *session.State
	csvPath string

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. csvPath is
// the local log file used as the default resync source and export target.
// logger may be nil; a default HTTP-component logger is built then.
func NewServer(addr string, b *bridge.Bridge, goals *session.State, csvPath string, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		bridge:  b,
		goals:   goals,
		csvPath: csvPath,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /entries", s.withRequestLogging(s.handleCreateEntry))
	mux.HandleFunc("GET /entries", s.withRequestLogging(s.handleListEntries))
	mux.HandleFunc("GET /entries/today", s.withRequestLogging(s.handleTodayEntries))
	mux.HandleFunc("GET /entries/range", s.withRequestLogging(s.handleRangeEntries))
	mux.HandleFunc("PUT /entries/{id}", s.withRequestLogging(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /entries/{id}", s.withRequestLogging(s.handleDeleteEntry))

	mux.HandleFunc("GET /totals/daily", s.withRequestLogging(s.handleDailyTotals))
	mux.HandleFunc("GET /totals/today", s.withRequestLogging(s.handleTodayTotals))
	mux.HandleFunc("GET /progress", s.withRequestLogging(s.handleProgress))
	mux.HandleFunc("GET /foods/top", s.withRequestLogging(s.handleTopFoods))

	mux.HandleFunc("GET /goals", s.withRequestLogging(s.handleGetGoals))
	mux.HandleFunc("PUT /goals", s.withRequestLogging(s.handleSetGoals))

	mux.HandleFunc("GET /export", s.withRequestLogging(s.handleExport))
	mux.HandleFunc("POST /sync/resync", s.withRequestLogging(s.handleResync))
	mux.HandleFunc("POST /sync/export", s.withRequestLogging(s.handleSyncExport))

	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	} else {
		logger = logger.WithComponent(applog.ComponentHTTP)
	}

	// Every request gets a context logger carrying a request id.
	var handler http.Handler = mux
	handler = applog.RequestIDMiddleware(requestID)(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server.Addr = addr
	s.Server.Handler = handler
	s.Server.ReadHeaderTimeout = 5 * time.Second
	s.Server.ReadTimeout = 15 * time.Second
	s.Server.WriteTimeout = 30 * time.Second
	s.Server.IdleTimeout = 60 * time.Second

	return s
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestLogging adds security headers and start/end logs around a
// handler. The request id comes from the context logger.
func (s *Server) withRequestLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := applog.FromContext(r.Context())

		logger.InfoContext(r.Context(), "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(r.Context(), "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

// responseWriter captures the status code for the completion log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestID honors an inbound X-Request-ID and mints one otherwise.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Local storage is the availability floor; the remote table may be down
	// without making the service unready.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
