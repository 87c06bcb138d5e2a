// Package http exposes the coleta CRUD API. Handlers route, validate and
// map outcomes to status codes; all business rules live in core and storage.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coleta/internal/amqp"
	"coleta/internal/core"
	"coleta/internal/excel"
)

// RecordStore is the persistence port the handlers talk to.
type RecordStore interface {
	List(ctx context.Context, spec *core.GroupSpec) ([]core.Record, error)
	Get(ctx context.Context, spec *core.GroupSpec, id int64) (core.Record, error)
	Create(ctx context.Context, spec *core.GroupSpec, rec core.Record) (core.Record, error)
	Update(ctx context.Context, spec *core.GroupSpec, id int64, fields core.Fields) (core.Record, error)
	Delete(ctx context.Context, spec *core.GroupSpec, id int64) error
}

// EventPublisher receives record lifecycle events after successful writes.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev amqp.RecordEvent) error
}

type Server struct {
	http.Server
	store        RecordStore
	events       EventPublisher
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once

	// Workbook generation, swappable in tests.
	exporter func(w io.Writer, b core.DayBundle) error
	filename func(date string) string
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. events may be nil when AMQP is not configured.
func NewServer(addr string, store RecordStore, events EventPublisher, rateLimitRPM int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		events:      events,
		rateLimiter: newRateLimiter(rateLimitRPM),
		exporter:    excel.Write,
		filename:    excel.Filename,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	for _, spec := range core.Specs() {
		base := fmt.Sprintf("/api/coleta/grupo%d", spec.Group)
		mux.HandleFunc("GET "+base, s.withMiddleware(s.handleList(spec)))
		mux.HandleFunc("POST "+base, s.withMiddleware(s.handleCreate(spec)))
		mux.HandleFunc("PUT "+base+"/{id}", s.withMiddleware(s.handleUpdate(spec)))
		mux.HandleFunc("DELETE "+base+"/{id}", s.withMiddleware(s.handleDelete(spec)))
	}

	mux.HandleFunc("GET /api/coleta/dias", s.withMiddleware(s.handleDias))
	mux.HandleFunc("GET /api/coleta/export/{date}", s.withMiddleware(s.handleExport))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine along with the
// listener.
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

// withMiddleware adds request IDs, security headers, mutating-request rate
// limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.", nil)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
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

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory rate limiter, per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	perMinute    int
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	rl := &rateLimiter{
		perMinute:   perMinute,
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	return client.requests <= rl.perMinute
}
