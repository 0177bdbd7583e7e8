package deckbuilder

import "github.com/thraizz/mtg-horde-go/internal/game/cards"

// Shape summarizes how tokens are laid out in a built deck.
type Shape struct {
	Size            int
	Tokens          int
	LongestTokenRun int
	// FirstNonToken is the index of the first non-token card, or Size when
	// the deck holds tokens only.
	FirstNonToken int
}

// Describe measures deck.
func Describe(deck []cards.Card) Shape {
	s := Shape{Size: len(deck), FirstNonToken: len(deck)}
	run := 0
	for i, c := range deck {
		if !c.IsToken() {
			run = 0
			if s.FirstNonToken == len(deck) {
				s.FirstNonToken = i
			}
			continue
		}
		s.Tokens++
		run++
		s.LongestTokenRun = max(s.LongestTokenRun, run)
	}
	return s
}
