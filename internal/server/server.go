// Package server exposes flow generation, the block catalog and chain
// storage over JSON HTTP.
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

	"github.com/rcliao/somi-flow/internal/flow"
	"github.com/rcliao/somi-flow/internal/store"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20

// Server routes the HTTP API.
type Server struct {
	flows   *flow.Service
	store   store.Store
	auth    Authenticator
	metrics *Metrics
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the collectors. NewServer creates its own otherwise.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server and registers its routes.
func NewServer(flows *flow.Service, st store.Store, auth Authenticator, opts ...Option) *Server {
	s := &Server{
		flows:  flows,
		store:  st,
		auth:   auth,
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.auth == nil {
		s.auth = StaticTokens(nil)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.Handle("POST /v1/flows", s.authed(s.handleCreateFlow))
	s.mux.Handle("POST /v1/flows/swap", s.authed(s.handleSwapBlock))
	s.mux.Handle("GET /v1/blocks", s.authed(s.handleListBlocks))

	s.mux.Handle("POST /v1/chains", s.authed(s.handleCreateChain))
	s.mux.Handle("POST /v1/chains/commit", s.authed(s.handleCommitChain))
	s.mux.Handle("GET /v1/chains", s.authed(s.handleListChains))
	s.mux.Handle("GET /v1/chains/{id}", s.authed(s.handleGetChain))
	s.mux.Handle("DELETE /v1/chains/{id}", s.authed(s.handleDeleteChain))
	s.mux.Handle("POST /v1/chains/{id}/check-ins", s.authed(s.handleAppendCheckIn))
	s.mux.Handle("POST /v1/chains/{id}/blocks", s.authed(s.handleAppendBlock))
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.metrics.instrument(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errBadRequest marks request errors found by the handlers themselves.
var errBadRequest = errors.New("bad request")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, flow.ErrInvalidRequest),
		errors.Is(err, flow.ErrNotSwappable):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("route", r.Pattern), slog.String("error", msg))
		msg = "internal error"
	} else if status == http.StatusServiceUnavailable {
		s.logger.Error("catalog unavailable", slog.String("error", msg))
		msg = flow.ErrCatalogUnavailable.Error()
	}
	writeError(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}
