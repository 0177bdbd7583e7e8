package game

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/game/rules"
	"go.uber.org/zap"
)

// Session is one game with its own lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	engine *Engine
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(e *Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Manager keeps the live sessions of a process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	catalog    cards.Catalog
	seed       func() int64
	logger     *zap.Logger
	onGameOver func(sessionID string, result rules.Result)
}

func NewManager(catalog cards.Catalog, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  catalog,
		seed:     func() int64 { return time.Now().UnixNano() },
		logger:   logger,
	}
}

// SetSeedSource controls the random seed of new sessions.
func (m *Manager) SetSeedSource(seed func() int64) {
	if seed != nil {
		m.seed = seed
	}
}

// OnGameOver registers a handler attached to every session created afterwards.
func (m *Manager) OnGameOver(handler func(sessionID string, result rules.Result)) {
	m.onGameOver = handler
}

// Catalog returns the catalog sessions draw their decks from.
func (m *Manager) Catalog() cards.Catalog {
	return m.catalog
}

// Create registers a new session with a fresh engine.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))

	engine := NewEngine(m.catalog, rand.New(rand.NewSource(m.seed())), logger)
	if m.onGameOver != nil {
		handler := m.onGameOver
		engine.OnGameOver(func(result rules.Result) {
			handler(id, result)
		})
	}

	session := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		engine:    engine,
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	logger.Info("session created")
	return session
}

// Get looks up a session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Remove drops a session. Removing an unknown session is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.logger.Info("session removed", zap.String("session_id", id))
	}
}

// Sessions returns the live sessions ordered by id.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
