package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/thraizz/mtg-horde-go/internal/config"
	"github.com/thraizz/mtg-horde-go/internal/game"
	"github.com/thraizz/mtg-horde-go/internal/game/rules"
	"github.com/thraizz/mtg-horde-go/internal/storage"
	"go.uber.org/zap"
)

type sessionMessage struct {
	sessionID string
	payload   []byte
}

// Hub tracks connected clients and routes their requests to game sessions.
// Clients attached to the same session all receive its state updates.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan sessionMessage
	done       chan struct{}
	releases   sync.WaitGroup

	manager  *game.Manager
	store    storage.Store
	defaults config.GameConfig
	cfg      config.ServerConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub wires a hub to the session manager and registers the game-over
// push on it.
func NewHub(manager *game.Manager, store storage.Store, cfg config.ServerConfig, defaults config.GameConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan sessionMessage, 64),
		done:       make(chan struct{}),
		manager:    manager,
		store:      store,
		defaults:   defaults,
		cfg:        cfg,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	manager.OnGameOver(h.gameOver)
	return h
}

// Run serves the hub until ctx is canceled, then disconnects every client.
// A session is released once the last client attached to it disconnects.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.releases.Wait()
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered", zap.String("remote", client.remote))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(ctx, client)
				h.logger.Debug("client unregistered",
					zap.String("remote", client.remote),
					zap.String("session_id", client.sessionID()),
				)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.sessionID() != msg.sessionID {
					continue
				}
				if !client.queue(msg.payload) {
					h.drop(ctx, client)
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			return
		}
	}
}

// drop disconnects client and releases its session when no other client is
// attached to it.
func (h *Hub) drop(ctx context.Context, client *Client) {
	delete(h.clients, client)
	client.close()

	sessionID := client.sessionID()
	if sessionID == "" {
		return
	}
	for other := range h.clients {
		if other.sessionID() == sessionID {
			return
		}
	}

	h.releases.Add(1)
	go func() {
		defer h.releases.Done()
		h.release(context.WithoutCancel(ctx), sessionID)
	}()
}

// release autosaves an abandoned session and removes it from the manager.
func (h *Hub) release(ctx context.Context, sessionID string) {
	session, err := h.manager.Get(sessionID)
	if err != nil {
		return
	}
	saved, err := autosave(ctx, h.store, session)
	if err != nil {
		h.logger.Warn("failed to autosave released session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	h.manager.Remove(sessionID)
	h.logger.Info("session released",
		zap.String("session_id", sessionID),
		zap.Bool("autosaved", saved),
	)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, r.RemoteAddr)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) publish(sessionID string, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- sessionMessage{sessionID: sessionID, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) gameOver(sessionID string, result rules.Result) {
	h.logger.Info("game over",
		zap.String("session_id", sessionID),
		zap.String("winner", result.Winner.String()),
		zap.String("message", result.Message),
	)
	h.publish(sessionID, gameOverMessage(sessionID, result))
}

// handle runs one request. Replies for the requester alone are returned;
// state changes are published to every client of the session.
func (h *Hub) handle(ctx context.Context, client *Client, msg WSMessage) *WSMessage {
	switch msg.Type {
	case TypeDecks:
		return &WSMessage{Type: TypeDecks, Data: h.manager.Catalog().Names()}
	case TypeStart:
		return h.handleStart(ctx, client, msg)
	case TypeRestore:
		return h.handleRestore(ctx, client, msg)
	case TypeSlots:
		return h.handleSlots(ctx)
	case TypeDelete:
		return h.handleDelete(ctx, msg)
	}

	session, err := h.attach(client, msg.SessionID)
	if err != nil {
		return ptr(errorMessage(msg.SessionID, err))
	}

	var (
		reply   *WSMessage
		changed bool
	)
	err = session.Do(func(e *game.Engine) error {
		switch msg.Type {
		case TypeState:
			reply = ptr(stateMessage(session.ID, e))
		case TypeMove:
			result, err := e.Move(msg.Move, msg.Args...)
			if err != nil {
				return err
			}
			if !result.Applied() {
				reply = &WSMessage{Type: TypeRejected, SessionID: session.ID, Move: msg.Move, Reason: result.Reason}
				return nil
			}
			changed = true
		case TypeUndo:
			if !e.Undo() {
				reply = &WSMessage{Type: TypeRejected, SessionID: session.ID, Reason: "nothing to undo"}
				return nil
			}
			changed = true
		case TypeRedo:
			if !e.Redo() {
				reply = &WSMessage{Type: TypeRejected, SessionID: session.ID, Reason: "nothing to redo"}
				return nil
			}
			changed = true
		case TypeSave:
			// Names that normalize to the same key share a slot; the reply
			// carries the key actually written.
			key, err := storage.SlotKey(msg.Slot)
			if err != nil {
				return err
			}
			if err := e.Save(ctx, h.store, key); err != nil {
				return err
			}
			reply = &WSMessage{Type: TypeSaved, SessionID: session.ID, Slot: key}
		default:
			return fmt.Errorf("unknown message type %q", msg.Type)
		}
		if changed {
			h.publish(session.ID, stateMessage(session.ID, e))
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("request failed",
			zap.String("type", msg.Type),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return ptr(errorMessage(session.ID, err))
	}
	return reply
}

func (h *Hub) handleStart(ctx context.Context, client *Client, msg WSMessage) *WSMessage {
	session, err := h.attachOrCreate(client, msg.SessionID)
	if err != nil {
		return ptr(errorMessage(msg.SessionID, err))
	}

	opts := h.startOptions(msg.Options)
	err = session.Do(func(e *game.Engine) error {
		if err := e.Start(ctx, opts); err != nil {
			return err
		}
		h.publish(session.ID, stateMessage(session.ID, e))
		return nil
	})
	if err != nil {
		return ptr(errorMessage(session.ID, err))
	}
	return nil
}

func (h *Hub) handleRestore(ctx context.Context, client *Client, msg WSMessage) *WSMessage {
	session, err := h.attachOrCreate(client, msg.SessionID)
	if err != nil {
		return ptr(errorMessage(msg.SessionID, err))
	}

	err = session.Do(func(e *game.Engine) error {
		if err := e.Restore(ctx, h.store, msg.Slot); err != nil {
			return err
		}
		h.publish(session.ID, stateMessage(session.ID, e))
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrSlotNotFound) {
			h.logger.Debug("restore of missing slot", zap.String("slot", msg.Slot))
		}
		return ptr(errorMessage(session.ID, err))
	}
	return nil
}

func (h *Hub) handleSlots(ctx context.Context) *WSMessage {
	slots, err := h.store.List(ctx)
	if err != nil {
		h.logger.Warn("failed to list slots", zap.Error(err))
		return ptr(errorMessage("", err))
	}
	if slots == nil {
		slots = []string{}
	}
	return &WSMessage{Type: TypeSlots, Data: slots}
}

func (h *Hub) handleDelete(ctx context.Context, msg WSMessage) *WSMessage {
	key, err := storage.SlotKey(msg.Slot)
	if err != nil {
		return ptr(errorMessage("", err))
	}
	if err := h.store.Delete(ctx, key); err != nil {
		h.logger.Warn("failed to delete slot", zap.String("slot", key), zap.Error(err))
		return ptr(errorMessage("", err))
	}
	h.logger.Info("slot deleted", zap.String("slot", key))
	return &WSMessage{Type: TypeDeleted, Slot: key}
}

// attach binds the client to sessionID, or resolves the session it is
// already bound to when sessionID is empty.
func (h *Hub) attach(client *Client, sessionID string) (*game.Session, error) {
	if sessionID == "" {
		sessionID = client.sessionID()
	}
	if sessionID == "" {
		return nil, errors.New("no session: send start or restore first")
	}
	session, err := h.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	client.setSessionID(session.ID)
	return session, nil
}

func (h *Hub) attachOrCreate(client *Client, sessionID string) (*game.Session, error) {
	if sessionID != "" || client.sessionID() != "" {
		return h.attach(client, sessionID)
	}
	session := h.manager.Create()
	client.setSessionID(session.ID)
	return session, nil
}

// startOptions fills unset request fields from the configured defaults.
func (h *Hub) startOptions(req *StartRequest) game.StartOptions {
	opts := game.StartOptions{
		NumberOfSurvivors:            h.defaults.NumberOfSurvivors,
		TokenProportion:              h.defaults.TokenProportion,
		NumberOfInitialSurvivorTurns: h.defaults.NumberOfInitialSurvivorTurns,
		DistributionMode:             h.defaults.DistributionMode,
		ShuffleBiasFactor:            h.defaults.ShuffleBiasFactor,
	}
	if req == nil {
		return opts
	}
	opts.DeckName = strings.TrimSpace(req.DeckName)
	if req.NumberOfSurvivors != nil {
		opts.NumberOfSurvivors = *req.NumberOfSurvivors
	}
	if req.TokenProportion != nil {
		opts.TokenProportion = *req.TokenProportion
	}
	if req.NumberOfInitialSurvivorTurns != nil {
		opts.NumberOfInitialSurvivorTurns = *req.NumberOfInitialSurvivorTurns
	}
	if req.DistributionMode != "" {
		opts.DistributionMode = req.DistributionMode
	}
	if req.ShuffleBiasFactor != nil {
		opts.ShuffleBiasFactor = *req.ShuffleBiasFactor
	}
	return opts
}

func ptr[T any](v T) *T { return &v }
