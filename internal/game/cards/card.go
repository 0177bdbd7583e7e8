package cards

import (
	"math/rand"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/thraizz/mtg-horde-go/internal/game/counters"
)

// LateGameTag marks catalog cards that should tend to show up late in the deck.
const LateGameTag = "#lategame"

// Card type lines the engine cares about.
const (
	TypeInstant     = "Instant"
	TypeSorcery     = "Sorcery"
	TypeEnchantment = "Enchantment"
)

// Images holds the card art URIs.
type Images struct {
	Normal string `json:"normal,omitempty" yaml:"normal,omitempty"`
}

// Face is one side of a double-faced card. Empty fields fall back to the
// template's values.
type Face struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Text      string  `json:"text,omitempty" yaml:"text,omitempty"`
	Images    *Images `json:"images,omitempty" yaml:"images,omitempty"`
	Power     string  `json:"power,omitempty" yaml:"power,omitempty"`
	Toughness string  `json:"toughness,omitempty" yaml:"toughness,omitempty"`
	Type      string  `json:"type,omitempty" yaml:"type,omitempty"`
	Layout    string  `json:"layout,omitempty" yaml:"layout,omitempty"`
	ManaCost  string  `json:"mana_cost,omitempty" yaml:"mana_cost,omitempty"`
}

// Template is a catalog card as supplied by the card catalog.
type Template struct {
	Name       string   `json:"name" yaml:"name"`
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
	Images     *Images  `json:"images,omitempty" yaml:"images,omitempty"`
	Power      string   `json:"power,omitempty" yaml:"power,omitempty"`
	Toughness  string   `json:"toughness,omitempty" yaml:"toughness,omitempty"`
	Type       string   `json:"type" yaml:"type"`
	Layout     string   `json:"layout" yaml:"layout"`
	ManaCost   string   `json:"mana_cost,omitempty" yaml:"mana_cost,omitempty"`
	CMC        float64  `json:"cmc,omitempty" yaml:"cmc,omitempty"`
	Rarity     string   `json:"rarity,omitempty" yaml:"rarity,omitempty"`
	CustomTags []string `json:"custom_tags,omitempty" yaml:"custom_tags,omitempty"`
	CardFaces  []Face   `json:"card_faces,omitempty" yaml:"card_faces,omitempty"`
}

// Card is a card instance living in exactly one Horde zone.
type Card struct {
	UID               string   `json:"uid"`
	Name              string   `json:"name"`
	Text              string   `json:"text,omitempty"`
	Images            Images   `json:"images"`
	Power             string   `json:"power,omitempty"`
	Toughness         string   `json:"toughness,omitempty"`
	Type              string   `json:"type"`
	Layout            string   `json:"layout"`
	ManaCost          string   `json:"manaCost,omitempty"`
	ConvertedManaCost float64  `json:"convertedManaCost,omitempty"`
	Rarity            string   `json:"rarity,omitempty"`
	CustomTags        []string `json:"customTags,omitempty"`

	Tapped       bool `json:"tapped"`
	IsExtraToken bool `json:"isExtraToken"`
	counters.Markers
}

// NewUID returns a fresh process-unique card identifier.
func NewUID() string {
	return uuid.NewString()
}

// Instantiate creates a card instance from a template. Double-faced templates
// resolve to one of their faces, picked uniformly with rng.
func Instantiate(t Template, rng *rand.Rand, uid string) Card {
	card := Card{
		UID:               uid,
		Name:              t.Name,
		Text:              t.Text,
		Power:             t.Power,
		Toughness:         t.Toughness,
		Type:              t.Type,
		Layout:            t.Layout,
		ManaCost:          t.ManaCost,
		ConvertedManaCost: t.CMC,
		Rarity:            t.Rarity,
		CustomTags:        slices.Clone(t.CustomTags),
	}
	if t.Images != nil {
		card.Images = *t.Images
	}

	if !t.IsDoubleFaced() || len(t.CardFaces) == 0 {
		return card
	}

	face := t.CardFaces[rng.Intn(len(t.CardFaces))]
	if face.Name != "" {
		card.Name = face.Name
	}
	if face.Text != "" {
		card.Text = face.Text
	}
	if face.Images != nil {
		card.Images = *face.Images
	}
	if face.Power != "" {
		card.Power = face.Power
	}
	if face.Toughness != "" {
		card.Toughness = face.Toughness
	}
	if face.Type != "" {
		card.Type = face.Type
	}
	if face.Layout != "" {
		card.Layout = face.Layout
	}
	if face.ManaCost != "" {
		card.ManaCost = face.ManaCost
	}
	return card
}

// IsToken reports whether the template's layout marks it as a token.
func (t Template) IsToken() bool {
	return strings.Contains(t.Layout, "token")
}

// IsDoubleFaced reports whether the template has two playable faces.
func (t Template) IsDoubleFaced() bool {
	return strings.Contains(t.Layout, "double_faced")
}

// IsToken reports whether the card's layout marks it as a token.
func (c Card) IsToken() bool {
	return strings.Contains(c.Layout, "token")
}

func (c Card) IsInstant() bool     { return c.Type == TypeInstant }
func (c Card) IsSorcery() bool     { return c.Type == TypeSorcery }
func (c Card) IsEnchantment() bool { return c.Type == TypeEnchantment }

// IsLateGame reports whether the card carries the late-game tag.
func (c Card) IsLateGame() bool {
	return slices.Contains(c.CustomTags, LateGameTag)
}

// Tappable reports whether the card is affected by tap-all. Instants,
// sorceries and enchantments never tap.
func (c Card) Tappable() bool {
	return !c.IsInstant() && !c.IsSorcery() && !c.IsEnchantment()
}

// ClearState returns the card with its zone-transient state reset.
func (c Card) ClearState() Card {
	c.Tapped = false
	c.Markers.Clear()
	c.IsExtraToken = false
	return c
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	c.CustomTags = slices.Clone(c.CustomTags)
	return c
}

// PowerValue parses the leading integer of the printed power. Values such as
// "*" count as zero.
func (c Card) PowerValue() int {
	return leadingInt(c.Power)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	sign := 1
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	return sign * n
}

// rarityRanks follows the catalog's rarity ordering.
var rarityRanks = map[string]int{
	"common":   0,
	"uncommon": 1,
	"rare":     2,
	"special":  3,
	"mythic":   4,
	"bonus":    5,
}

// RarityRank returns the rank of the card's rarity, zero when unknown.
func (c Card) RarityRank() int {
	return rarityRanks[strings.ToLower(c.Rarity)]
}

// CloneCards deep copies a slice of cards. A nil slice stays nil.
func CloneCards(in []Card) []Card {
	if in == nil {
		return nil
	}
	out := make([]Card, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
