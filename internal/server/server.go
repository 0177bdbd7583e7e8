package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/thraizz/mtg-horde-go/internal/config"
	"github.com/thraizz/mtg-horde-go/internal/game"
	"go.uber.org/zap"
)

// Server exposes the hub over HTTP.
type Server struct {
	hub     *Hub
	manager *game.Manager
	http    *http.Server
	logger  *zap.Logger
}

func NewServer(cfg config.ServerConfig, hub *Hub, manager *game.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		hub:     hub,
		manager: manager,
		logger:  logger,
	}
	s.http = &http.Server{
		Addr:    cfg.Address,
		Handler: s.Routes(),
	}
	return s
}

// Routes returns the HTTP handler of the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /decks", s.handleDecks)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.manager.Sessions()),
	})
}

func (s *Server) handleDecks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"decks": s.manager.Catalog().Names(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ListenAndServe blocks until the server stops. A shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
