package zones

import (
	"errors"
	"fmt"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
)

// ErrInvalidMove marks a move rejected because of its arguments. State is
// left untouched whenever an operation returns it.
var ErrInvalidMove = errors.New("invalid move")

// Horde holds the three ordered zones of the automated side. Deck index 0 is
// the top of the library.
type Horde struct {
	Deck        []cards.Card `json:"deck"`
	Battlefield []cards.Card `json:"battlefield"`
	Graveyard   []cards.Card `json:"graveyard"`
}

// Survivors is the player-controlled side.
type Survivors struct {
	Life int `json:"life"`
}

// Clone returns a deep copy of all zones.
func (h Horde) Clone() Horde {
	return Horde{
		Deck:        cards.CloneCards(h.Deck),
		Battlefield: cards.CloneCards(h.Battlefield),
		Graveyard:   cards.CloneCards(h.Graveyard),
	}
}

// Life is the Horde life total: cards left in the deck plus battlefield cards
// that are not extra tokens.
func (h *Horde) Life() int {
	life := len(h.Deck)
	for _, c := range h.Battlefield {
		if !c.IsExtraToken {
			life++
		}
	}
	return life
}

// Damage is the sum of printed power over the battlefield.
func (h *Horde) Damage() int {
	damage := 0
	for _, c := range h.Battlefield {
		damage += c.PowerValue()
	}
	return damage
}

// HasInstantOrSorceryOnBattlefield reports whether a spell still waits to be
// cleared from the battlefield.
func (h *Horde) HasInstantOrSorceryOnBattlefield() bool {
	for _, c := range h.Battlefield {
		if c.IsInstant() || c.IsSorcery() {
			return true
		}
	}
	return false
}

// DrawToBattlefield reveals cards from the top of the deck up to and including
// the first non-token. A deck holding only tokens is revealed entirely.
func (h *Horde) DrawToBattlefield() int {
	n := len(h.Deck)
	for i, c := range h.Deck {
		if !c.IsToken() {
			n = i + 1
			break
		}
	}

	drawn := h.Deck[:n]
	h.Battlefield = concat(h.Battlefield, drawn)
	h.Deck = concat(nil, h.Deck[n:])
	return n
}

// SetAllBattlefieldTapped taps or untaps every battlefield card that can tap.
func (h *Horde) SetAllBattlefieldTapped(tapped bool) {
	battlefield := concat(nil, h.Battlefield)
	for i := range battlefield {
		if battlefield[i].Tappable() {
			battlefield[i].Tapped = tapped
		}
	}
	h.Battlefield = battlefield
}

// ToggleTapped flips the tapped flag of one battlefield card.
func (h *Horde) ToggleTapped(index int) error {
	if err := checkIndex("battlefield", index, len(h.Battlefield)); err != nil {
		return err
	}
	battlefield := concat(nil, h.Battlefield)
	battlefield[index].Tapped = !battlefield[index].Tapped
	h.Battlefield = battlefield
	return nil
}

// AddToken puts a copy of card on the battlefield as an extra token with the
// given power and toughness.
func (h *Horde) AddToken(card cards.Card, power, toughness, uid string) {
	token := card.Clone()
	token.Power = power
	token.Toughness = toughness
	token.IsExtraToken = true
	token.UID = uid
	h.Battlefield = append(concat(nil, h.Battlefield), token)
}

// MillToGraveyard moves the top n cards of the deck to the graveyard. Tokens
// cease to exist instead. Milling more cards than the deck holds empties it.
func (h *Horde) MillToGraveyard(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: mill count must be positive, got %d", ErrInvalidMove, n)
	}
	if n > len(h.Deck) {
		n = len(h.Deck)
	}

	graveyard := concat(nil, h.Graveyard)
	for _, c := range h.Deck[:n] {
		if c.IsToken() {
			continue
		}
		graveyard = append(graveyard, c.ClearState())
	}
	h.Graveyard = graveyard
	h.Deck = concat(nil, h.Deck[n:])
	return nil
}

// BattlefieldCardToGraveyard puts one battlefield card at the end of the
// graveyard. Tokens and extra tokens are dropped.
func (h *Horde) BattlefieldCardToGraveyard(index int) error {
	card, err := h.takeFromBattlefield(index)
	if err != nil {
		return err
	}
	if card.IsToken() || card.IsExtraToken {
		return nil
	}
	h.Graveyard = append(concat(nil, h.Graveyard), card.ClearState())
	return nil
}

// BattlefieldCardToDeck puts one battlefield card on top of the deck. Extra
// tokens are dropped.
func (h *Horde) BattlefieldCardToDeck(index int) error {
	card, err := h.takeFromBattlefield(index)
	if err != nil {
		return err
	}
	if card.IsExtraToken {
		return nil
	}
	h.Deck = concat([]cards.Card{card.ClearState()}, h.Deck)
	return nil
}

// BattlefieldCardToExile removes one battlefield card from the game.
func (h *Horde) BattlefieldCardToExile(index int) error {
	_, err := h.takeFromBattlefield(index)
	return err
}

// GraveyardCardToDeck puts one graveyard card on top of the deck, or at the
// bottom when toTop is false.
func (h *Horde) GraveyardCardToDeck(index int, toTop bool) error {
	card, err := h.takeFromGraveyard(index)
	if err != nil {
		return err
	}
	if toTop {
		h.Deck = concat([]cards.Card{card}, h.Deck)
	} else {
		h.Deck = append(concat(nil, h.Deck), card)
	}
	return nil
}

// GraveyardCardToBattlefield returns one graveyard card to the battlefield.
func (h *Horde) GraveyardCardToBattlefield(index int, tapped bool) error {
	card, err := h.takeFromGraveyard(index)
	if err != nil {
		return err
	}
	card.Tapped = tapped
	h.Battlefield = append(concat(nil, h.Battlefield), card)
	return nil
}

// GraveyardCardToExile removes one graveyard card from the game.
func (h *Horde) GraveyardCardToExile(index int) error {
	_, err := h.takeFromGraveyard(index)
	return err
}

// AdjustCounters adds marker deltas to one battlefield card.
func (h *Horde) AdjustCounters(index, powerDelta, toughnessDelta int) error {
	if err := checkIndex("battlefield", index, len(h.Battlefield)); err != nil {
		return err
	}
	battlefield := concat(nil, h.Battlefield)
	battlefield[index].Markers.Adjust(powerDelta, toughnessDelta)
	h.Battlefield = battlefield
	return nil
}

// AdjustLife changes the Survivors life total. Life may go negative.
func (s *Survivors) AdjustLife(delta int) error {
	if delta == 0 {
		return fmt.Errorf("%w: life delta must not be zero", ErrInvalidMove)
	}
	s.Life += delta
	return nil
}

func (h *Horde) takeFromBattlefield(index int) (cards.Card, error) {
	card, rest, err := removeAt("battlefield", h.Battlefield, index)
	if err != nil {
		return cards.Card{}, err
	}
	h.Battlefield = rest
	return card, nil
}

func (h *Horde) takeFromGraveyard(index int) (cards.Card, error) {
	card, rest, err := removeAt("graveyard", h.Graveyard, index)
	if err != nil {
		return cards.Card{}, err
	}
	h.Graveyard = rest
	return card, nil
}

func checkIndex(zone string, index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: %s index %d out of range [0,%d)", ErrInvalidMove, zone, index, length)
	}
	return nil
}

// removeAt returns the card at index and a new slice without it.
func removeAt(zone string, in []cards.Card, index int) (cards.Card, []cards.Card, error) {
	if err := checkIndex(zone, index, len(in)); err != nil {
		return cards.Card{}, in, err
	}
	out := make([]cards.Card, 0, len(in)-1)
	out = append(out, in[:index]...)
	out = append(out, in[index+1:]...)
	return in[index], out, nil
}

// concat returns a fresh slice holding a followed by b. The result is never nil.
func concat(a, b []cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
