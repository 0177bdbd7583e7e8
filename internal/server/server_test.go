package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thraizz/mtg-horde-go/internal/config"
	"github.com/thraizz/mtg-horde-go/internal/game"
	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/game/rules"
	"github.com/thraizz/mtg-horde-go/internal/storage"
	"go.uber.org/zap/zaptest"
)

func testCatalog() cards.Catalog {
	return cards.Catalog{
		"zombies": {
			{Quantity: 30, Card: cards.Template{Name: "Walker", Type: "Creature — Zombie", Layout: "normal", Power: "2", Toughness: "2"}},
			{Quantity: 5, Card: cards.Template{Name: "Zombie", Type: "Token Creature — Zombie", Layout: "token", Power: "2", Toughness: "2"}},
		},
		"angels": {
			{Quantity: 40, Card: cards.Template{Name: "Angel", Type: "Creature — Angel", Layout: "normal", Power: "4", Toughness: "4"}},
		},
	}
}

func testGameDefaults() config.GameConfig {
	return config.GameConfig{
		NumberOfSurvivors:            1,
		TokenProportion:              0.6,
		NumberOfInitialSurvivorTurns: 3,
		DistributionMode:             "geometric_boosted",
	}
}

type testEnv struct {
	manager *game.Manager
	store   *storage.MemoryStore
	hub     *Hub
	server  *Server
	http    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	manager := game.NewManager(testCatalog(), logger)
	manager.SetSeedSource(func() int64 { return 7 })
	store := storage.NewMemoryStore()

	cfg := config.ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  512 * 1024,
		PingInterval:    time.Minute,
		WriteTimeout:    5 * time.Second,
	}
	hub := NewHub(manager, store, cfg, testGameDefaults(), logger)
	srv := NewServer(cfg, hub, manager, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hub.done
	})
	return &testEnv{manager: manager, store: store, hub: hub, server: srv, http: ts}
}

func (env *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type reply struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Move      string          `json:"move"`
	Slot      string          `json:"slot"`
	Reason    string          `json:"reason"`
	Data      json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var r reply
	require.NoError(t, conn.ReadJSON(&r))
	return r
}

// receiveType skips frames until one of the wanted type arrives.
func receiveType(t *testing.T, conn *websocket.Conn, typ string) reply {
	t.Helper()
	for i := 0; i < 10; i++ {
		r := receive(t, conn)
		if r.Type == typ {
			return r
		}
	}
	t.Fatalf("no %s message received", typ)
	return reply{}
}

func stateOf(t *testing.T, r reply) StateView {
	t.Helper()
	require.Equal(t, TypeState, r.Type, "reason: %s", r.Reason)
	var view StateView
	require.NoError(t, json.Unmarshal(r.Data, &view))
	return view
}

func intPtr(n int) *int { return &n }

func startMessage(initialTurns int) WSMessage {
	return WSMessage{Type: TypeStart, Options: &StartRequest{
		DeckName:                     "zombies",
		NumberOfInitialSurvivorTurns: intPtr(initialTurns),
	}}
}

func TestHealthAndDecks(t *testing.T) {
	env := newTestEnv(t)
	env.manager.Create()

	rec := httptest.NewRecorder()
	env.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	env.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"decks":["angels","zombies"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	env.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/decks", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebsocketGameFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, WSMessage{Type: TypeDecks})
	r := receive(t, conn)
	require.Equal(t, TypeDecks, r.Type)
	assert.JSONEq(t, `["angels","zombies"]`, string(r.Data))

	send(t, conn, WSMessage{Type: TypeState})
	r = receive(t, conn)
	assert.Equal(t, TypeError, r.Type)

	send(t, conn, startMessage(0))
	r = receive(t, conn)
	view := stateOf(t, r)
	sessionID := r.SessionID
	require.NotEmpty(t, sessionID)
	assert.Equal(t, rules.PhaseFightTheHorde, view.State.Turn.CurrentPhase)
	assert.Equal(t, rules.StageDraw, view.State.Turn.CurrentStage)
	assert.Equal(t, 20, view.State.Survivors.Life)
	assert.Equal(t, len(view.State.Horde.Deck), view.HordeLife)
	assert.False(t, view.CanUndo)

	send(t, conn, WSMessage{Type: TypeMove, Move: game.MoveToggleTapped, Args: []any{5}})
	r = receive(t, conn)
	assert.Equal(t, TypeRejected, r.Type)
	assert.Equal(t, game.MoveToggleTapped, r.Move)
	assert.NotEmpty(t, r.Reason)

	send(t, conn, WSMessage{Type: TypeUndo})
	r = receive(t, conn)
	assert.Equal(t, TypeRejected, r.Type)

	send(t, conn, WSMessage{Type: TypeMove, Move: game.MoveAdjustSurvivorsLife, Args: []any{-3}})
	view = stateOf(t, receive(t, conn))
	assert.Equal(t, 17, view.State.Survivors.Life)
	assert.True(t, view.CanUndo)

	send(t, conn, WSMessage{Type: TypeUndo})
	view = stateOf(t, receive(t, conn))
	assert.Equal(t, 20, view.State.Survivors.Life)
	assert.True(t, view.CanRedo)

	send(t, conn, WSMessage{Type: TypeRedo})
	view = stateOf(t, receive(t, conn))
	assert.Equal(t, 17, view.State.Survivors.Life)

	send(t, conn, WSMessage{Type: TypeMove, Move: "castSpell"})
	r = receive(t, conn)
	assert.Equal(t, TypeError, r.Type)

	send(t, conn, WSMessage{Type: TypeSave, Slot: "before the end"})
	r = receive(t, conn)
	assert.Equal(t, TypeSaved, r.Type)
	assert.Equal(t, "before-the-end", r.Slot)
	keys, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"before-the-end"}, keys)

	send(t, conn, WSMessage{Type: TypeMove, Move: game.MoveAdjustSurvivorsLife, Args: []any{-17}})
	r = receiveType(t, conn, TypeGameOver)
	var result rules.Result
	require.NoError(t, json.Unmarshal(r.Data, &result))
	assert.Equal(t, rules.HordeWins, result)

	send(t, conn, WSMessage{Type: TypeMove, Move: game.MoveDrawToBattlefield})
	r = receiveType(t, conn, TypeRejected)
	assert.Equal(t, "game is over", r.Reason)
}

func TestWebsocketSessionBroadcast(t *testing.T) {
	env := newTestEnv(t)
	owner := env.dial(t)
	watcher := env.dial(t)

	send(t, owner, startMessage(0))
	sessionID := receive(t, owner).SessionID

	send(t, watcher, WSMessage{Type: TypeState, SessionID: sessionID})
	r := receive(t, watcher)
	assert.Equal(t, sessionID, r.SessionID)
	stateOf(t, r)

	send(t, owner, WSMessage{Type: TypeMove, Move: game.MoveHordeDraw})
	ownerView := stateOf(t, receive(t, owner))
	watcherView := stateOf(t, receive(t, watcher))
	assert.Equal(t, rules.StageAttack, ownerView.State.Turn.CurrentStage)
	assert.Equal(t, ownerView.State.Turn, watcherView.State.Turn)

	send(t, watcher, WSMessage{Type: TypeState, SessionID: "no-such-session"})
	r = receive(t, watcher)
	assert.Equal(t, TypeError, r.Type)
}

func TestWebsocketRestoreIntoNewSession(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, startMessage(0))
	stateOf(t, receive(t, conn))
	send(t, conn, WSMessage{Type: TypeMove, Move: game.MoveAdjustSurvivorsLife, Args: []any{-5}})
	stateOf(t, receive(t, conn))
	send(t, conn, WSMessage{Type: TypeSave, Slot: "slot1"})
	require.Equal(t, TypeSaved, receive(t, conn).Type)

	other := env.dial(t)
	send(t, other, WSMessage{Type: TypeRestore, Slot: "missing"})
	assert.Equal(t, TypeError, receive(t, other).Type)

	send(t, other, WSMessage{Type: TypeRestore, Slot: "slot1"})
	view := stateOf(t, receive(t, other))
	assert.Equal(t, 15, view.State.Survivors.Life)
	assert.False(t, view.CanUndo)
	assert.Len(t, env.manager.Sessions(), 2)
}

func TestWebsocketReleasesAbandonedSession(t *testing.T) {
	env := newTestEnv(t)
	owner := env.dial(t)
	watcher := env.dial(t)

	send(t, owner, startMessage(0))
	sessionID := receive(t, owner).SessionID
	send(t, owner, WSMessage{Type: TypeMove, Move: game.MoveAdjustSurvivorsLife, Args: []any{-4}})
	stateOf(t, receive(t, owner))

	send(t, watcher, WSMessage{Type: TypeState, SessionID: sessionID})
	stateOf(t, receive(t, watcher))

	require.NoError(t, owner.Close())
	assert.Never(t, func() bool {
		_, err := env.manager.Get(sessionID)
		return err != nil
	}, 200*time.Millisecond, 20*time.Millisecond, "session still has a client")

	require.NoError(t, watcher.Close())
	require.Eventually(t, func() bool {
		return len(env.manager.Sessions()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	data, err := env.store.Get(context.Background(), AutosaveSlot(sessionID))
	require.NoError(t, err)
	state, err := game.DecodeSavepoint(data)
	require.NoError(t, err)
	assert.Equal(t, 16, state.Survivors.Life)

	conn := env.dial(t)
	send(t, conn, WSMessage{Type: TypeState, SessionID: sessionID})
	assert.Equal(t, TypeError, receive(t, conn).Type)

	send(t, conn, WSMessage{Type: TypeRestore, Slot: AutosaveSlot(sessionID)})
	view := stateOf(t, receive(t, conn))
	assert.Equal(t, 16, view.State.Survivors.Life)
}

func TestWebsocketUnstartedSessionIsNotAutosaved(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, WSMessage{Type: TypeStart, Options: &StartRequest{DeckName: "missing"}})
	r := receive(t, conn)
	require.Equal(t, TypeError, r.Type)
	require.Len(t, env.manager.Sessions(), 1)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return len(env.manager.Sessions()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	keys, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestWebsocketSlots(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, WSMessage{Type: TypeSlots})
	r := receive(t, conn)
	require.Equal(t, TypeSlots, r.Type)
	assert.JSONEq(t, `[]`, string(r.Data))

	send(t, conn, startMessage(0))
	stateOf(t, receive(t, conn))

	send(t, conn, WSMessage{Type: TypeSave, Slot: "Save 1"})
	r = receive(t, conn)
	require.Equal(t, TypeSaved, r.Type)
	assert.Equal(t, "save-1", r.Slot)

	// A differently spelled name lands on the same key.
	send(t, conn, WSMessage{Type: TypeSave, Slot: "save-1"})
	r = receive(t, conn)
	require.Equal(t, TypeSaved, r.Type)
	assert.Equal(t, "save-1", r.Slot)

	send(t, conn, WSMessage{Type: TypeSave, Slot: "  "})
	assert.Equal(t, TypeError, receive(t, conn).Type)

	send(t, conn, WSMessage{Type: TypeSlots})
	r = receive(t, conn)
	require.Equal(t, TypeSlots, r.Type)
	assert.JSONEq(t, `["save-1"]`, string(r.Data))

	send(t, conn, WSMessage{Type: TypeDelete, Slot: "Save 1"})
	r = receive(t, conn)
	require.Equal(t, TypeDeleted, r.Type)
	assert.Equal(t, "save-1", r.Slot)

	send(t, conn, WSMessage{Type: TypeDelete, Slot: "///"})
	assert.Equal(t, TypeError, receive(t, conn).Type)

	send(t, conn, WSMessage{Type: TypeSlots})
	assert.JSONEq(t, `[]`, string(receive(t, conn).Data))

	send(t, conn, WSMessage{Type: TypeRestore, Slot: "save-1"})
	assert.Equal(t, TypeError, receive(t, conn).Type)
}

func TestWebsocketInvalidFrame(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, TypeError, receive(t, conn).Type)

	send(t, conn, WSMessage{Type: "shuffle", SessionID: env.manager.Create().ID})
	assert.Equal(t, TypeError, receive(t, conn).Type)
}

func TestStartOptionsDefaults(t *testing.T) {
	h := &Hub{defaults: testGameDefaults()}

	opts := h.startOptions(nil)
	assert.Equal(t, 1, opts.NumberOfSurvivors)
	assert.Equal(t, 0.6, opts.TokenProportion)
	assert.Equal(t, 3, opts.NumberOfInitialSurvivorTurns)
	assert.Equal(t, "geometric_boosted", opts.DistributionMode)

	zero := 0.0
	opts = h.startOptions(&StartRequest{
		DeckName:                     " zombies ",
		NumberOfSurvivors:            intPtr(3),
		TokenProportion:              &zero,
		NumberOfInitialSurvivorTurns: intPtr(0),
		DistributionMode:             "random",
	})
	assert.Equal(t, "zombies", opts.DeckName)
	assert.Equal(t, 3, opts.NumberOfSurvivors)
	assert.Equal(t, 0.0, opts.TokenProportion)
	assert.Equal(t, 0, opts.NumberOfInitialSurvivorTurns)
	assert.Equal(t, "random", opts.DistributionMode)
}

func TestCheckOrigin(t *testing.T) {
	h := &Hub{}
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.True(t, h.checkOrigin(req))

	h.cfg.AllowedOrigins = []string{"https://horde.example"}
	assert.False(t, h.checkOrigin(req))
	req.Header.Set("Origin", "https://horde.example")
	assert.True(t, h.checkOrigin(req))
}

type failingStore struct {
	storage.Store
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestAutosaverSavesStartedSessions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := game.NewManager(testCatalog(), logger)
	store := storage.NewMemoryStore()

	started := manager.Create()
	require.NoError(t, started.Do(func(e *game.Engine) error {
		return e.Start(context.Background(), game.StartOptions{DeckName: "angels", NumberOfSurvivors: 1, TokenProportion: 0.5})
	}))
	manager.Create()

	a, err := NewAutosaver(manager, store, time.Hour, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown() })

	assert.Equal(t, 1, a.SaveAll(context.Background()))
	keys, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)

	data, err := store.Get(context.Background(), AutosaveSlot(started.ID))
	require.NoError(t, err)
	state, err := game.DecodeSavepoint(data)
	require.NoError(t, err)
	assert.Equal(t, "angels", state.Config.DeckName)
}

func TestAutosaverFailureIsNotFatal(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := game.NewManager(testCatalog(), logger)
	require.NoError(t, manager.Create().Do(func(e *game.Engine) error {
		return e.Start(context.Background(), game.StartOptions{DeckName: "angels", NumberOfSurvivors: 1})
	}))

	a, err := NewAutosaver(manager, failingStore{}, time.Hour, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown() })

	assert.Equal(t, 0, a.SaveAll(context.Background()))
}

func TestAutosaverRunsOnSchedule(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := game.NewManager(testCatalog(), logger)
	store := storage.NewMemoryStore()
	session := manager.Create()
	require.NoError(t, session.Do(func(e *game.Engine) error {
		return e.Start(context.Background(), game.StartOptions{DeckName: "angels", NumberOfSurvivors: 2})
	}))

	a, err := NewAutosaver(manager, store, 50*time.Millisecond, logger)
	require.NoError(t, err)
	a.Start()
	t.Cleanup(func() { a.Shutdown() })

	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), AutosaveSlot(session.ID))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}
