package game

import (
	"fmt"

	"github.com/thraizz/mtg-horde-go/internal/game/rules"
	"github.com/thraizz/mtg-horde-go/internal/game/zones"
)

// Move names accepted by Engine.Move.
const (
	MoveAdvanceInitialTurn = "advanceInitialTurn"

	MoveDrawToBattlefield          = "drawToBattlefield"
	MoveSetAllBattlefieldTapped    = "setAllBattlefieldTapped"
	MoveToggleTapped               = "toggleTapped"
	MoveAddToken                   = "addToken"
	MoveMillToGraveyard            = "millToGraveyard"
	MoveBattlefieldCardToGraveyard = "battlefieldCardToGraveyard"
	MoveBattlefieldCardToDeck      = "battlefieldCardToDeck"
	MoveBattlefieldCardToExile     = "battlefieldCardToExile"
	MoveGraveyardCardToDeck        = "graveyardCardToDeck"
	MoveGraveyardCardToBattlefield = "graveyardCardToBattlefield"
	MoveGraveyardCardToExile       = "graveyardCardToExile"
	MoveAdjustCounters             = "adjustCounters"
	MoveAdjustSurvivorsLife        = "adjustSurvivorsLife"

	MoveHordeDraw        = "hordeDraw"
	MoveHordeAttackEnd   = "hordeAttackEnd"
	MoveSurvivorsEndTurn = "survivorsEndTurn"
)

// moveFunc applies a move to the engine state. Errors wrapping
// zones.ErrInvalidMove reject the move; any other error is fatal.
type moveFunc func(e *Engine, args Args) error

type moveTable map[string]moveFunc

// phaseDef pairs a phase's moves with its end predicate.
type phaseDef struct {
	moves moveTable
	endIf func(s *State) bool
}

// compose builds a move table from shared moves and phase overrides. An
// override replaces a shared move of the same name.
func compose(shared, overrides moveTable) moveTable {
	table := make(moveTable, len(shared)+len(overrides))
	for name, fn := range shared {
		table[name] = fn
	}
	for name, fn := range overrides {
		table[name] = fn
	}
	return table
}

func phaseDefs() map[rules.Phase]phaseDef {
	return map[rules.Phase]phaseDef{
		rules.PhaseInitialSurvivorsTurns: {
			moves: moveTable{
				MoveAdvanceInitialTurn: advanceInitialTurn,
			},
			endIf: func(s *State) bool {
				return s.Turn.CurrentInitialSurvivorTurn > s.Config.NumberOfInitialSurvivorTurns
			},
		},
		rules.PhaseFightTheHorde: {
			moves: compose(zoneMoves(), moveTable{
				MoveHordeDraw:        hordeDraw,
				MoveHordeAttackEnd:   hordeAttackEnd,
				MoveSurvivorsEndTurn: survivorsEndTurn,
			}),
		},
	}
}

func zoneMoves() moveTable {
	return moveTable{
		MoveDrawToBattlefield: func(e *Engine, _ Args) error {
			e.state.Horde.DrawToBattlefield()
			return nil
		},
		MoveSetAllBattlefieldTapped: func(e *Engine, args Args) error {
			tapped, err := args.BoolOr(0, true)
			if err != nil {
				return err
			}
			e.state.Horde.SetAllBattlefieldTapped(tapped)
			return nil
		},
		MoveToggleTapped: func(e *Engine, args Args) error {
			index, err := args.Int(0)
			if err != nil {
				return err
			}
			return e.state.Horde.ToggleTapped(index)
		},
		MoveAddToken: func(e *Engine, args Args) error {
			card, err := args.Card(0)
			if err != nil {
				return err
			}
			power, err := args.Text(1)
			if err != nil {
				return err
			}
			toughness, err := args.Text(2)
			if err != nil {
				return err
			}
			e.state.Horde.AddToken(card, power, toughness, e.newUID())
			return nil
		},
		MoveMillToGraveyard: func(e *Engine, args Args) error {
			n, err := args.Int(0)
			if err != nil {
				return err
			}
			return e.state.Horde.MillToGraveyard(n)
		},
		MoveBattlefieldCardToGraveyard: indexMove(func(h *zones.Horde, i int) error { return h.BattlefieldCardToGraveyard(i) }),
		MoveBattlefieldCardToDeck:      indexMove(func(h *zones.Horde, i int) error { return h.BattlefieldCardToDeck(i) }),
		MoveBattlefieldCardToExile:     indexMove(func(h *zones.Horde, i int) error { return h.BattlefieldCardToExile(i) }),
		MoveGraveyardCardToDeck: func(e *Engine, args Args) error {
			index, err := args.Int(0)
			if err != nil {
				return err
			}
			toTop, err := args.BoolOr(1, true)
			if err != nil {
				return err
			}
			return e.state.Horde.GraveyardCardToDeck(index, toTop)
		},
		MoveGraveyardCardToBattlefield: func(e *Engine, args Args) error {
			index, err := args.Int(0)
			if err != nil {
				return err
			}
			tapped, err := args.BoolOr(1, false)
			if err != nil {
				return err
			}
			return e.state.Horde.GraveyardCardToBattlefield(index, tapped)
		},
		MoveGraveyardCardToExile: indexMove(func(h *zones.Horde, i int) error { return h.GraveyardCardToExile(i) }),
		MoveAdjustCounters: func(e *Engine, args Args) error {
			index, err := args.Int(0)
			if err != nil {
				return err
			}
			power, err := args.IntOr(1, 0)
			if err != nil {
				return err
			}
			toughness, err := args.IntOr(2, 0)
			if err != nil {
				return err
			}
			return e.state.Horde.AdjustCounters(index, power, toughness)
		},
		MoveAdjustSurvivorsLife: func(e *Engine, args Args) error {
			delta, err := args.Int(0)
			if err != nil {
				return err
			}
			return e.state.Survivors.AdjustLife(delta)
		},
	}
}

func indexMove(op func(h *zones.Horde, index int) error) moveFunc {
	return func(e *Engine, args Args) error {
		index, err := args.Int(0)
		if err != nil {
			return err
		}
		return op(&e.state.Horde, index)
	}
}

func advanceInitialTurn(e *Engine, _ Args) error {
	e.state.Turn.CurrentInitialSurvivorTurn++
	return nil
}

func hordeDraw(e *Engine, _ Args) error {
	turn := &e.state.Turn
	if turn.CurrentStage != rules.StageDraw || turn.ActivePlayerIndex != rules.PlayerHorde {
		return fmt.Errorf("%w: the horde draws only during its draw stage", zones.ErrInvalidMove)
	}
	turn.CurrentTurnNumber++
	e.state.Horde.DrawToBattlefield()
	return turn.SetStage(rules.StageAttack)
}

func hordeAttackEnd(e *Engine, _ Args) error {
	turn := &e.state.Turn
	if turn.CurrentStage != rules.StageAttack || turn.ActivePlayerIndex != rules.PlayerHorde {
		return fmt.Errorf("%w: the horde ends its attack only during its attack stage", zones.ErrInvalidMove)
	}
	if e.state.Horde.HasInstantOrSorceryOnBattlefield() {
		return fmt.Errorf("%w: remove sorceries and instants from the horde battlefield first", zones.ErrInvalidMove)
	}
	turn.EndTurn()
	return nil
}

func survivorsEndTurn(e *Engine, _ Args) error {
	turn := &e.state.Turn
	if turn.ActivePlayerIndex != rules.PlayerSurvivors {
		return fmt.Errorf("%w: it is not the survivors' turn", zones.ErrInvalidMove)
	}
	turn.EndTurn()
	return turn.SetStage(rules.StageDraw)
}
