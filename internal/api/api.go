// Package api provides HTTP handlers and the main API server logic for Photon.
//
// It exposes RESTful endpoints for chatting with the shipping assistant,
// resetting a conversation, and health checking. The API integrates with the
// flow, shipping, and store modules.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/avocadolabs/photon/internal/flow"
	"github.com/avocadolabs/photon/internal/models"
)

const (
	// DefaultAddr is the default listen address for the API server.
	DefaultAddr = ":8080"
	// DefaultRequestTimeout bounds a single chat turn, including any
	// upstream provider and model calls it triggers.
	DefaultRequestTimeout = 60 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// DialogueEngine handles one chat turn for a session.
type DialogueEngine interface {
	HandleChat(ctx context.Context, sessions *flow.SessionManager, sessionID, message string) (*models.ChatResponse, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	RequestTimeout time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRequestTimeout overrides the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.RequestTimeout = d
	}
}

// Server is the Photon HTTP API server.
type Server struct {
	engine   DialogueEngine
	sessions *flow.SessionManager

	addr           string
	requestTimeout time.Duration
	httpServer     *http.Server
}

// NewServer creates an API server over the given engine and session manager.
func NewServer(engine DialogueEngine, sessions *flow.SessionManager, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, RequestTimeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		engine:         engine,
		sessions:       sessions,
		addr:           cfg.Addr,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Router builds the request router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/chat", s.chatHandler).Methods(http.MethodPost)
	r.HandleFunc("/reset", s.resetHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	return r
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
