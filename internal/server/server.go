package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// SessionFactory builds a fresh session for a new client.
type SessionFactory func() *session.Session

// Server exposes sessions over WebSocket and a JSON API.
type Server struct {
	cfg        *config.ServerConfig
	logger     logger.Logger
	store      storage.Store
	newSession SessionFactory
	registry   *session.Registry
	upgrader   websocket.Upgrader
	router     *mux.Router

	baseCtx context.Context
	cancel  context.CancelFunc
	connWG  sync.WaitGroup
}

// New creates a new server instance. store may be nil when history is
// disabled.
func New(cfg *config.ServerConfig, log logger.Logger, store storage.Store, factory SessionFactory) *Server {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		logger:     log,
		store:      store,
		newSession: factory,
		registry:   session.NewRegistry(cfg.SessionTTL, factory),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry exposes the HTTP session registry.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc(normalizePath(s.cfg.WSPath), s.handleWebsocket).Methods(http.MethodGet)

	api := router.PathPrefix(normalizePath(s.cfg.APIPath)).Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/messages", s.handleSessionMessage).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/outputs", s.handleSessionOutputs).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	// Registered before /runs/{id} so "export" is not taken for an id.
	api.HandleFunc("/runs/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleRun).Methods(http.MethodGet)
	return router
}

// Run serves until ctx is cancelled or the listener fails, then shuts
// down and closes live WebSocket sessions.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.registry.StartCleanup()
	defer s.registry.StopCleanup()

	s.logger.Info("Starting session server",
		"addr", listener.Addr().String(),
		"ws_path", normalizePath(s.cfg.WSPath),
		"api_path", normalizePath(s.cfg.APIPath),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)

		// Hijacked WebSocket connections are not tracked by Shutdown.
		s.cancel()
		s.connWG.Wait()
		if err != nil {
			s.logger.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	err := group.Wait()
	s.logger.Info("Server exited")
	return err
}

// Close stops all live WebSocket sessions.
func (s *Server) Close() {
	s.cancel()
	s.connWG.Wait()
	s.registry.StopCleanup()
}
