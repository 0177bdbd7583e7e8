package server

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/thraizz/mtg-horde-go/internal/game"
	"github.com/thraizz/mtg-horde-go/internal/storage"
	"go.uber.org/zap"
)

// AutosaveSlot is the slot a session is autosaved to.
func AutosaveSlot(sessionID string) string {
	return "autosave-" + sessionID
}

// Autosaver periodically writes every started session to its autosave slot.
type Autosaver struct {
	sched   gocron.Scheduler
	manager *game.Manager
	store   storage.Store
	logger  *zap.Logger
}

func NewAutosaver(manager *game.Manager, store storage.Store, interval time.Duration, logger *zap.Logger) (*Autosaver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	a := &Autosaver{
		sched:   sched,
		manager: manager,
		store:   store,
		logger:  logger,
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			a.SaveAll(context.Background())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule autosave: %w", err)
	}
	return a, nil
}

func (a *Autosaver) Start() {
	a.sched.Start()
}

func (a *Autosaver) Shutdown() error {
	return a.sched.Shutdown()
}

// SaveAll saves every started session and returns how many were written.
// Failures are logged and do not stop the run.
func (a *Autosaver) SaveAll(ctx context.Context) int {
	saved := 0
	for _, session := range a.manager.Sessions() {
		ok, err := autosave(ctx, a.store, session)
		if err != nil {
			a.logger.Warn("autosave failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
		if ok {
			saved++
		}
	}
	a.logger.Debug("autosave finished", zap.Int("saved", saved))
	return saved
}

// autosave writes a started session to its autosave slot and reports whether
// anything was written.
func autosave(ctx context.Context, store storage.Store, session *game.Session) (bool, error) {
	saved := false
	err := session.Do(func(e *game.Engine) error {
		if !e.Started() {
			return nil
		}
		if err := e.Save(ctx, store, AutosaveSlot(session.ID)); err != nil {
			return err
		}
		saved = true
		return nil
	})
	return saved, err
}
