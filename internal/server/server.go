package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/roach88/aiir/internal/runtime"
)

// Error reasons produced outside the dispatcher.
const (
	ReasonID            = "id"
	ReasonFileID        = "file-id"
	ReasonPacket        = "packet"
	ReasonAdapt         = "adapt"
	ReasonContentLength = "content-length"
	ReasonBodyShort     = "body-short"
	ReasonOpID          = "opId"
	ReasonArgs          = "args"
	ReasonRoute         = "route"
	ReasonRateLimit     = "rate-limit"
	ReasonCircuitOpen   = "circuit-open"
)

// RequestIDHeader carries the id assigned to every admitted request.
const RequestIDHeader = "X-Request-Id"

// Server serves one runtime.
type Server struct {
	rt      *runtime.Runtime
	limiter *rate.Limiter
	breaker *breaker
	handler http.Handler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used by the circuit breaker.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New builds a server for rt using the admission settings of its config.
func New(rt *runtime.Runtime, opts ...Option) *Server {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := rt.Config()

	s := &Server{
		rt:      rt,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS),
		breaker: newBreaker(cfg.CBFailThreshold, cfg.CBCooldown, o.now),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ai/meta", s.handleMeta)
	mux.HandleFunc("GET /ai/render/{id...}", s.handleRender)
	mux.HandleFunc("POST /ai/db/exec", s.handleExec)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ReasonRoute)
	})
	s.handler = s.admit(mux)
	return s
}

// Handler returns the root handler, admission included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully. The drift monitor also watches the core directory
// for the lifetime of the server.
func (s *Server) ListenAndServe(ctx context.Context) error {
	cfg := s.rt.Config()
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.rt.Config()
	srv := &http.Server{
		Handler:        s.handler,
		ReadTimeout:    cfg.IOTimeout,
		WriteTimeout:   cfg.IOTimeout,
		MaxHeaderBytes: cfg.MaxReqBytes,
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := s.rt.Drift().Watch(watchCtx); err != nil {
			slog.Warn("drift watch stopped", "error", err)
		}
	}()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	slog.Info("runtime serving",
		"addr", ln.Addr().String(),
		"files", s.rt.Meta().Files,
	)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type failureKey struct{}

// markFailed flags the current request as a failure for the circuit
// breaker even though its status is below 500.
func markFailed(r *http.Request) {
	if f, ok := r.Context().Value(failureKey{}).(*bool); ok {
		*f = true
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.breaker.Allow() {
			writeError(w, http.StatusServiceUnavailable, ReasonCircuitOpen)
			return
		}
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, ReasonRateLimit)
			return
		}
		s.rt.Drift().Tick()

		reqID := newRequestID()
		w.Header().Set(RequestIDHeader, reqID)

		failed := false
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), failureKey{}, &failed)))

		failed = failed || rec.status >= http.StatusInternalServerError
		s.breaker.Record(failed)
		slog.Debug("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
		)
	})
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type errorBody struct {
	OK  int    `json:"ok"`
	Err string `json:"err"`
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorBody{OK: 0, Err: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
