package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/game/deckbuilder"
	"github.com/thraizz/mtg-horde-go/internal/game/rules"
	"github.com/thraizz/mtg-horde-go/internal/game/zones"
	"go.uber.org/zap"
)

// Outcome tells whether a move was applied or rejected.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeRejected
)

func (o Outcome) String() string {
	if o == OutcomeRejected {
		return "rejected"
	}
	return "applied"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// MoveResult is returned by every move. Reason is set for rejected moves.
type MoveResult struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Applied reports whether the move changed the game.
func (r MoveResult) Applied() bool {
	return r.Outcome == OutcomeApplied
}

// StartOptions configures a new game.
type StartOptions struct {
	DeckName                     string  `json:"deckName"`
	NumberOfSurvivors            int     `json:"numberOfSurvivors"`
	TokenProportion              float64 `json:"tokenProportion"`
	NumberOfInitialSurvivorTurns int     `json:"numberOfInitialSurvivorTurns"`
	DistributionMode             string  `json:"distributionMode"`
	ShuffleBiasFactor            float64 `json:"shuffleBiasFactor"`
}

// GameOverHandler is notified once when a game result is decided.
type GameOverHandler func(result rules.Result)

// Engine owns the state of one game and is driven by named moves. It is not
// safe for concurrent use; Manager serializes access per session.
type Engine struct {
	state   State
	history *History
	catalog cards.Catalog
	builder *deckbuilder.Builder
	phases  map[rules.Phase]phaseDef
	newUID  func() string
	logger  *zap.Logger

	onGameOver GameOverHandler
}

// NewEngine creates an engine drawing decks from catalog. A nil rng uses a
// time-seeded generator.
func NewEngine(catalog cards.Catalog, rng *rand.Rand, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		state:   initialState(),
		history: NewHistory(MaxHistory),
		catalog: catalog,
		builder: deckbuilder.NewBuilder(rng, logger),
		phases:  phaseDefs(),
		newUID:  cards.NewUID,
		logger:  logger,
	}
}

// OnGameOver registers the game-over handler.
func (e *Engine) OnGameOver(handler GameOverHandler) {
	e.onGameOver = handler
}

// SetUIDSource replaces the card uid generator for built decks and tokens.
func (e *Engine) SetUIDSource(fn func() string) {
	if fn == nil {
		return
	}
	e.newUID = fn
	e.builder.SetUIDSource(fn)
}

// Start resets the game and history and builds a new Horde deck.
func (e *Engine) Start(ctx context.Context, opts StartOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mode, err := validateStart(opts)
	if err != nil {
		return err
	}
	entries, err := e.catalog.Deck(opts.DeckName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	deck, err := e.builder.Build(entries, deckbuilder.Options{
		NumberOfSurvivors: opts.NumberOfSurvivors,
		TokenProportion:   opts.TokenProportion,
		Mode:              mode,
		ShuffleBiasFactor: opts.ShuffleBiasFactor,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	state := initialState()
	state.Config = Config{
		DeckName:                     opts.DeckName,
		NumberOfSurvivors:            opts.NumberOfSurvivors,
		TokenProportion:              opts.TokenProportion,
		NumberOfInitialSurvivorTurns: opts.NumberOfInitialSurvivorTurns,
		DistributionMode:             mode,
		ShuffleBiasFactor:            opts.ShuffleBiasFactor,
	}
	state.Survivors.Life = opts.NumberOfSurvivors * LifePerSurvivor
	state.Horde.Deck = deck
	state.Turn.CurrentInitialSurvivorTurn = 1
	if err := state.Turn.SetPhase(rules.PhaseInitialSurvivorsTurns); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	e.state = state
	e.history.Clear()
	if err := e.checkPhaseEnd(); err != nil {
		return err
	}

	e.logger.Info("game started",
		zap.String("deck", opts.DeckName),
		zap.Int("survivors", opts.NumberOfSurvivors),
		zap.String("mode", string(mode)),
		zap.Int("deck_size", len(deck)),
		zap.String("phase", e.state.Turn.CurrentPhase.String()),
	)
	return nil
}

func validateStart(opts StartOptions) (deckbuilder.Mode, error) {
	if opts.NumberOfSurvivors < 1 || opts.NumberOfSurvivors > 4 {
		return "", fmt.Errorf("%w: number of survivors must be between 1 and 4, got %d", ErrConfiguration, opts.NumberOfSurvivors)
	}
	if opts.TokenProportion < 0 || opts.TokenProportion > 1 {
		return "", fmt.Errorf("%w: token proportion must be between 0 and 1, got %v", ErrConfiguration, opts.TokenProportion)
	}
	if opts.NumberOfInitialSurvivorTurns < 0 {
		return "", fmt.Errorf("%w: number of initial survivor turns must not be negative, got %d", ErrConfiguration, opts.NumberOfInitialSurvivorTurns)
	}
	mode, err := deckbuilder.ParseMode(opts.DistributionMode)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return mode, nil
}

// Move applies a named move. Rejections come back as an OutcomeRejected
// result with a nil error; the returned error is reserved for configuration
// errors such as a move the current phase does not declare.
func (e *Engine) Move(name string, args ...any) (result MoveResult, err error) {
	phase := e.state.Turn.CurrentPhase
	if phase == rules.PhaseNone {
		return MoveResult{}, fmt.Errorf("%w: %w", ErrConfiguration, ErrNotStarted)
	}
	if e.state.Turn.IsOver() {
		return MoveResult{Outcome: OutcomeRejected, Reason: "game is over"}, nil
	}

	fn, ok := e.phases[phase].moves[name]
	if !ok {
		return MoveResult{}, fmt.Errorf("%w: %w: %q in phase %s", ErrConfiguration, ErrUnknownMove, name, phase)
	}

	cp := e.history.record(e.state.Clone())
	defer func() {
		if err != nil || !result.Applied() {
			e.state = e.history.rollback(cp)
		}
	}()

	if moveErr := fn(e, Args(args)); moveErr != nil {
		if errors.Is(moveErr, zones.ErrInvalidMove) {
			e.logger.Warn("move rejected",
				zap.String("move", name),
				zap.String("phase", phase.String()),
				zap.Error(moveErr),
			)
			return MoveResult{Outcome: OutcomeRejected, Reason: moveErr.Error()}, nil
		}
		return MoveResult{}, fmt.Errorf("%w: move %s: %w", ErrConfiguration, name, moveErr)
	}

	if err := e.checkPhaseEnd(); err != nil {
		return MoveResult{}, err
	}
	e.checkGameOver()

	e.logger.Debug("move applied",
		zap.String("move", name),
		zap.String("phase", e.state.Turn.CurrentPhase.String()),
		zap.String("stage", e.state.Turn.CurrentStage.String()),
		zap.Int("turn", e.state.Turn.CurrentTurnNumber),
		zap.Int("horde_life", e.HordeLife()),
	)
	return MoveResult{Outcome: OutcomeApplied}, nil
}

func (e *Engine) checkPhaseEnd() error {
	phase := e.state.Turn.CurrentPhase
	def, ok := e.phases[phase]
	if !ok || def.endIf == nil || !def.endIf(&e.state) {
		return nil
	}
	decl, err := rules.Declaration(phase)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if decl.Next == rules.PhaseNone {
		return nil
	}
	if err := e.state.Turn.SetPhase(decl.Next); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	e.logger.Info("phase ended",
		zap.String("from", phase.String()),
		zap.String("to", decl.Next.String()),
	)
	return nil
}

func (e *Engine) checkGameOver() {
	if e.state.Turn.CurrentPhase != rules.PhaseFightTheHorde || e.state.Turn.IsOver() {
		return
	}

	var result rules.Result
	switch {
	case e.HordeLife() <= 0:
		result = rules.SurvivorsWin
	case e.state.Survivors.Life <= 0:
		result = rules.HordeWins
	default:
		return
	}

	e.state.Turn.GameOverResult = &result
	e.logger.Info("game over",
		zap.String("winner", result.Winner.String()),
		zap.Int("turn", e.state.Turn.CurrentTurnNumber),
	)
	if e.onGameOver != nil {
		e.onGameOver(result)
	}
}

// Undo steps back one move. It reports false when there is nothing to undo.
func (e *Engine) Undo() bool {
	previous, ok := e.history.Undo(e.state.Clone())
	if !ok {
		return false
	}
	e.state = previous
	e.logger.Debug("undo", zap.Int("undo_depth", e.history.UndoLen()))
	return true
}

// Redo re-applies the last undone move.
func (e *Engine) Redo() bool {
	next, ok := e.history.Redo(e.state.Clone())
	if !ok {
		return false
	}
	e.state = next
	e.logger.Debug("redo", zap.Int("redo_depth", e.history.RedoLen()))
	return true
}

// Started reports whether Start or Restore has run.
func (e *Engine) Started() bool { return e.state.Turn.CurrentPhase != rules.PhaseNone }

func (e *Engine) CanUndo() bool { return e.history.UndoLen() > 0 }
func (e *Engine) CanRedo() bool { return e.history.RedoLen() > 0 }

// State returns a deep copy of the current state.
func (e *Engine) State() State {
	return e.state.Clone()
}

// HordeLife is derived from the zones on every call.
func (e *Engine) HordeLife() int {
	return e.state.Horde.Life()
}

// HordeDamage is derived from the battlefield on every call.
func (e *Engine) HordeDamage() int {
	return e.state.Horde.Damage()
}

// GameOver returns the result once the game is decided.
func (e *Engine) GameOver() (rules.Result, bool) {
	if r := e.state.Turn.GameOverResult; r != nil {
		return *r, true
	}
	return rules.Result{}, false
}

// Store persists savepoints under named slots.
type Store interface {
	Put(ctx context.Context, slot string, data []byte) error
	Get(ctx context.Context, slot string) ([]byte, error)
}

// Save writes a savepoint of the current state to slot.
func (e *Engine) Save(ctx context.Context, store Store, slot string) error {
	data, err := EncodeSavepoint(e.state)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, slot, data); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, err)
	}
	e.logger.Debug("savepoint written", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

// Restore replaces the current state with the savepoint in slot and clears
// both history stacks.
func (e *Engine) Restore(ctx context.Context, store Store, slot string) error {
	data, err := store.Get(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	state, err := DecodeSavepoint(data)
	if err != nil {
		return err
	}

	e.state = state
	e.history.Clear()
	e.logger.Info("savepoint restored",
		zap.String("slot", slot),
		zap.String("phase", state.Turn.CurrentPhase.String()),
		zap.Int("turn", state.Turn.CurrentTurnNumber),
	)
	return nil
}
