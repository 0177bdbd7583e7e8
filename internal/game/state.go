package game

import (
	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/game/deckbuilder"
	"github.com/thraizz/mtg-horde-go/internal/game/rules"
	"github.com/thraizz/mtg-horde-go/internal/game/zones"
)

// LifePerSurvivor is the starting life contributed by each survivor.
const LifePerSurvivor = 20

// StateKeys are the top-level keys every serialized State carries.
var StateKeys = []string{"config", "horde", "survivors", "turn"}

// Config is fixed when a game starts.
type Config struct {
	DeckName                     string           `json:"deckName"`
	NumberOfSurvivors            int              `json:"numberOfSurvivors"`
	TokenProportion              float64          `json:"tokenProportion"`
	NumberOfInitialSurvivorTurns int              `json:"numberOfInitialSurvivorTurns"`
	DistributionMode             deckbuilder.Mode `json:"distributionMode"`
	ShuffleBiasFactor            float64          `json:"shuffleBiasFactor"`
}

// State is the whole game. Everything a snapshot needs lives here.
type State struct {
	Config    Config          `json:"config"`
	Horde     zones.Horde     `json:"horde"`
	Survivors zones.Survivors `json:"survivors"`
	Turn      rules.Turn      `json:"turn"`
}

func initialState() State {
	return State{
		Config: Config{
			NumberOfSurvivors:            1,
			TokenProportion:              0.6,
			NumberOfInitialSurvivorTurns: 3,
			DistributionMode:             deckbuilder.DefaultMode,
		},
		Horde: zones.Horde{
			Deck:        []cards.Card{},
			Battlefield: []cards.Card{},
			Graveyard:   []cards.Card{},
		},
	}
}

// Clone returns a deep copy sharing nothing with s.
func (s State) Clone() State {
	return State{
		Config:    s.Config,
		Horde:     s.Horde.Clone(),
		Survivors: s.Survivors,
		Turn:      s.Turn.Clone(),
	}
}
