package rules

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrUnknownStage = errors.New("unknown stage")
)

// Phase represents the broad phases of a Horde game.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseInitialSurvivorsTurns
	PhaseFightTheHorde
)

var phaseNames = map[Phase]string{
	PhaseNone:                  "",
	PhaseInitialSurvivorsTurns: "initialSurvivorsTurns",
	PhaseFightTheHorde:         "fightTheHorde",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPhase, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPhase, text)
}

// Stage is a sub-state of a phase restricting which moves are legal.
type Stage int

const (
	StageNone Stage = iota
	StageDraw
	StageAttack
)

var stageNames = map[Stage]string{
	StageNone:   "",
	StageDraw:   "draw",
	StageAttack: "attack",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STAGE_%d", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	if _, ok := stageNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	for stage, name := range stageNames {
		if name == string(text) {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownStage, text)
}

// Player identifies the side whose turn it is.
type Player int

const (
	PlayerHorde Player = iota
	PlayerSurvivors
)

func (p Player) String() string {
	switch p {
	case PlayerHorde:
		return "horde"
	case PlayerSurvivors:
		return "survivors"
	}
	return fmt.Sprintf("PLAYER_%d", int(p))
}

// Other returns the opposing side.
func (p Player) Other() Player {
	if p == PlayerHorde {
		return PlayerSurvivors
	}
	return PlayerHorde
}

// PhaseDecl declares the static shape of a phase.
type PhaseDecl struct {
	Stages       []Stage
	InitialStage Stage
	// Next is PhaseNone for a terminal phase.
	Next Phase
}

// HasStage reports whether stage belongs to the phase.
func (d PhaseDecl) HasStage(stage Stage) bool {
	for _, s := range d.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

var declarations = map[Phase]PhaseDecl{
	PhaseInitialSurvivorsTurns: {
		Next: PhaseFightTheHorde,
	},
	PhaseFightTheHorde: {
		Stages:       []Stage{StageDraw, StageAttack},
		InitialStage: StageDraw,
	},
}

// Declaration returns the declaration of phase.
func Declaration(phase Phase) (PhaseDecl, error) {
	decl, ok := declarations[phase]
	if !ok {
		return PhaseDecl{}, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	return decl, nil
}

// Result is the terminal outcome of a game.
type Result struct {
	Winner  Player `json:"winner"`
	Message string `json:"message"`
}

var (
	SurvivorsWin = Result{Winner: PlayerSurvivors, Message: "Survivors win !"}
	HordeWins    = Result{Winner: PlayerHorde, Message: "Horde wins !"}
)

// Turn tracks turn progression for a game.
type Turn struct {
	CurrentTurnNumber          int     `json:"currentTurnNumber"`
	CurrentInitialSurvivorTurn int     `json:"currentInitialSurvivorTurn"`
	CurrentPhase               Phase   `json:"currentPhase"`
	CurrentStage               Stage   `json:"currentStage"`
	ActivePlayerIndex          Player  `json:"activePlayerIndex"`
	GameOverResult             *Result `json:"gameOverResult"`
}

// SetPhase enters phase and moves to its initial stage, if it declares one.
func (t *Turn) SetPhase(phase Phase) error {
	decl, err := Declaration(phase)
	if err != nil {
		return err
	}
	t.CurrentPhase = phase
	t.CurrentStage = StageNone
	if decl.InitialStage != StageNone {
		return t.SetStage(decl.InitialStage)
	}
	return nil
}

// SetStage moves the current phase to stage. Phases without stages accept
// any stage; otherwise the stage must be declared by the phase.
func (t *Turn) SetStage(stage Stage) error {
	decl, err := Declaration(t.CurrentPhase)
	if err != nil {
		return err
	}
	if len(decl.Stages) > 0 && !decl.HasStage(stage) {
		return fmt.Errorf("%w: stage %q not found in phase %q", ErrUnknownStage, stage, t.CurrentPhase)
	}
	t.CurrentStage = stage
	return nil
}

// EndTurn passes the turn to the other side.
func (t *Turn) EndTurn() {
	t.ActivePlayerIndex = t.ActivePlayerIndex.Other()
}

// IsOver reports whether a result has been decided.
func (t *Turn) IsOver() bool {
	return t.GameOverResult != nil
}

// Clone returns a copy that does not share the result pointer.
func (t Turn) Clone() Turn {
	if t.GameOverResult != nil {
		r := *t.GameOverResult
		t.GameOverResult = &r
	}
	return t
}
