package server

import (
	"bytes"
	"encoding/json"

	"github.com/thraizz/mtg-horde-go/internal/game"
	"github.com/thraizz/mtg-horde-go/internal/game/rules"
)

// Inbound message types.
const (
	TypeStart   = "start"
	TypeMove    = "move"
	TypeUndo    = "undo"
	TypeRedo    = "redo"
	TypeSave    = "save"
	TypeRestore = "restore"
	TypeState   = "state"
	TypeDecks   = "decks"
	TypeSlots   = "slots"
	TypeDelete  = "delete"
)

// Outbound message types. TypeState, TypeDecks and TypeSlots are shared with
// requests.
const (
	TypeRejected = "rejected"
	TypeError    = "error"
	TypeGameOver = "gameover"
	TypeSaved    = "saved"
	TypeDeleted  = "deleted"
)

// WSMessage is the envelope of every websocket frame in both directions.
type WSMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Move      string        `json:"move,omitempty"`
	Args      []any         `json:"args,omitempty"`
	Options   *StartRequest `json:"options,omitempty"`
	Slot      string        `json:"slot,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Data      any           `json:"data,omitempty"`
}

// StartRequest carries the options of a start message. Nil fields fall back
// to the server's configured game defaults.
type StartRequest struct {
	DeckName                     string   `json:"deckName"`
	NumberOfSurvivors            *int     `json:"numberOfSurvivors,omitempty"`
	TokenProportion              *float64 `json:"tokenProportion,omitempty"`
	NumberOfInitialSurvivorTurns *int     `json:"numberOfInitialSurvivorTurns,omitempty"`
	DistributionMode             string   `json:"distributionMode,omitempty"`
	ShuffleBiasFactor            *float64 `json:"shuffleBiasFactor,omitempty"`
}

// StateView is the payload of a state reply.
type StateView struct {
	State       game.State `json:"state"`
	HordeLife   int        `json:"hordeLife"`
	HordeDamage int        `json:"hordeDamage"`
	CanUndo     bool       `json:"canUndo"`
	CanRedo     bool       `json:"canRedo"`
}

func viewOf(e *game.Engine) StateView {
	return StateView{
		State:       e.State(),
		HordeLife:   e.HordeLife(),
		HordeDamage: e.HordeDamage(),
		CanUndo:     e.CanUndo(),
		CanRedo:     e.CanRedo(),
	}
}

func stateMessage(sessionID string, e *game.Engine) WSMessage {
	return WSMessage{Type: TypeState, SessionID: sessionID, Data: viewOf(e)}
}

func gameOverMessage(sessionID string, result rules.Result) WSMessage {
	return WSMessage{Type: TypeGameOver, SessionID: sessionID, Data: result}
}

func errorMessage(sessionID string, err error) WSMessage {
	return WSMessage{Type: TypeError, SessionID: sessionID, Reason: err.Error()}
}

// decodeMessage keeps numbers as json.Number so integer move arguments
// survive without a float round trip.
func decodeMessage(data []byte) (WSMessage, error) {
	var msg WSMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	err := dec.Decode(&msg)
	return msg, err
}
