// Package server exposes avatars and conversations over HTTP.
//
// Endpoints:
//   - GET    /api/avatars                 - List avatars
//   - POST   /api/avatars                 - Create an avatar from a description or a full definition
//   - GET    /api/avatars/{id}            - Show an avatar
//   - PUT    /api/avatars/{id}            - Edit an avatar
//   - DELETE /api/avatars/{id}            - Delete an avatar and its conversation
//   - POST   /api/avatars/{id}/select     - Make the avatar's conversation the active one
//   - GET    /api/avatars/{id}/history    - Conversation history
//   - DELETE /api/avatars/{id}/history    - Clear the conversation
//   - POST   /api/avatars/{id}/messages   - Send a message, streaming the reply as Server-Sent Events
//   - GET    /api/avatars/{id}/export     - Conversation as a Markdown download
//   - GET    /health                      - Health check
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/killallgit/cognilink/pkg/app"
)

const (
	DefaultAddr = ":8080"

	// MaxRequestBodySize bounds request bodies; attachments travel inline as data URIs
	MaxRequestBodySize = 20 * 1024 * 1024

	shutdownTimeout = 15 * time.Second
)

type Option func(*Server)

// WithRateLimit limits each client to rps requests per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.limiter = newClientLimiter(rps, burst) }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server serves the HTTP API for one App
type Server struct {
	app     *app.App
	router  *mux.Router
	limiter *clientLimiter
	log     *zap.Logger
}

func New(a *app.App, opts ...Option) *Server {
	s := &Server{
		app: a,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if s.limiter != nil {
		api.Use(s.limiter.middleware)
	}
	api.HandleFunc("/avatars", s.listAvatars).Methods(http.MethodGet)
	api.HandleFunc("/avatars", s.createAvatar).Methods(http.MethodPost)
	api.HandleFunc("/avatars/{id}", s.getAvatar).Methods(http.MethodGet)
	api.HandleFunc("/avatars/{id}", s.updateAvatar).Methods(http.MethodPut)
	api.HandleFunc("/avatars/{id}", s.deleteAvatar).Methods(http.MethodDelete)
	api.HandleFunc("/avatars/{id}/select", s.selectAvatar).Methods(http.MethodPost)
	api.HandleFunc("/avatars/{id}/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/avatars/{id}/history", s.clearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/avatars/{id}/messages", s.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/avatars/{id}/export", s.exportHistory).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.log.Info("Server stopped.")
		return nil
	}
}
