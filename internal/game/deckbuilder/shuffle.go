package deckbuilder

import (
	"math/rand"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
)

// shuffle permutes deck in place. A positive biasFactor switches to the
// late-game biased variant.
func shuffle(rng *rand.Rand, deck []cards.Card, biasFactor float64) []cards.Card {
	if biasFactor > 0 {
		return biasedShuffle(rng, deck, biasFactor)
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// biasedShuffle is a Fisher-Yates shuffle where late-game cards may be
// swapped into the already settled tail instead of the unsettled head.
// Rarer and more expensive cards get a higher chance:
// biasFactor + rarityRank*0.02 + cmc*0.005.
func biasedShuffle(rng *rand.Rand, deck []cards.Card, biasFactor float64) []cards.Card {
	for i := len(deck) - 1; i > 0; i-- {
		card := deck[i]

		var j int
		if card.IsLateGame() && rng.Float64() < biasFactor+biasMalus(card) {
			j = i + rng.Intn(len(deck)-i)
		} else {
			j = rng.Intn(i + 1)
		}

		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

func biasMalus(card cards.Card) float64 {
	return float64(card.RarityRank())*0.02 + card.ConvertedManaCost*0.005
}
