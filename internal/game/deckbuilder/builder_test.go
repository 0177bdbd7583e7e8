package deckbuilder

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"go.uber.org/zap/zaptest"
)

func nonToken(name string, qty int) cards.Entry {
	return cards.Entry{Quantity: qty, Card: cards.Template{Name: name, Type: "Creature — Zombie", Layout: "normal", Power: "2", Toughness: "2"}}
}

func token(name string, qty int) cards.Entry {
	return cards.Entry{Quantity: qty, Card: cards.Template{Name: name, Type: "Token Creature — Zombie", Layout: "token", Power: "2", Toughness: "2"}}
}

// largeCatalog has enough cards for every survivor count.
func largeCatalog() []cards.Entry {
	return []cards.Entry{
		nonToken("Walker", 60),
		nonToken("Ghoul", 40),
		token("Zombie", 15),
		token("Rat", 5),
	}
}

func newTestBuilder(t *testing.T, seed int64) *Builder {
	b := NewBuilder(rand.New(rand.NewSource(seed)), zaptest.NewLogger(t))
	n := 0
	b.SetUIDSource(func() string {
		n++
		return fmt.Sprintf("card-%d", n)
	})
	return b
}

func tokenRuns(deck []cards.Card) []int {
	runs := make([]int, len(deck))
	run := 0
	for i, c := range deck {
		if c.IsToken() {
			run++
		} else {
			run = 0
		}
		runs[i] = run
	}
	return runs
}

func TestTargetSize(t *testing.T) {
	entries := largeCatalog()
	assert.Equal(t, 45, TargetSize(1, entries))
	assert.Equal(t, 60, TargetSize(2, entries))
	assert.Equal(t, 75, TargetSize(3, entries))
	assert.Equal(t, 100, TargetSize(4, entries))
	assert.Equal(t, 120, TargetSize(0, entries))
	assert.Equal(t, 120, TargetSize(7, entries))
}

func TestBuildSizesAndTokenCounts(t *testing.T) {
	const proportion = 0.3
	for _, mode := range Modes {
		for survivors := 1; survivors <= 4; survivors++ {
			t.Run(fmt.Sprintf("%s/%d", mode, survivors), func(t *testing.T) {
				b := newTestBuilder(t, int64(survivors))
				deck, err := b.Build(largeCatalog(), Options{
					NumberOfSurvivors: survivors,
					TokenProportion:   proportion,
					Mode:              mode,
				})
				require.NoError(t, err)

				target := TargetSize(survivors, largeCatalog())
				assert.Len(t, deck, target)

				expected := math.Round(float64(target) * proportion)
				tokens := countTokens(deck)
				switch mode {
				case ModeGeometricBoosted, ModeEscalation:
					// The run cap may leave part of the budget unplaced.
					assert.LessOrEqual(t, float64(tokens), expected)
					assert.GreaterOrEqual(t, float64(tokens), expected/2)
				default:
					// Two token templates, each may lose one copy to rounding.
					assert.InDelta(t, expected, tokens, 2)
				}
			})
		}
	}
}

func TestBuildAssignsFreshUIDs(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(3)), zaptest.NewLogger(t))
	deck, err := b.Build(largeCatalog(), Options{NumberOfSurvivors: 2, TokenProportion: 0.5})
	require.NoError(t, err)

	seen := make(map[string]bool, len(deck))
	for _, c := range deck {
		require.NotEmpty(t, c.UID)
		require.False(t, seen[c.UID], "duplicate uid %s", c.UID)
		seen[c.UID] = true
	}
}

func TestBuildGeometricBoostedScenario(t *testing.T) {
	entries := []cards.Entry{
		nonToken("Walker", 40),
		token("Zombie", 10),
	}

	for seed := int64(1); seed <= 20; seed++ {
		b := newTestBuilder(t, seed)
		deck, caps, err := b.build(entries, Options{
			NumberOfSurvivors: 1,
			TokenProportion:   0.6,
			Mode:              ModeGeometricBoosted,
		})
		require.NoError(t, err)
		require.Len(t, deck, 45)
		require.Len(t, caps, 45)

		tokens := countTokens(deck)
		assert.LessOrEqual(t, tokens, 27, "seed %d", seed)
		assert.GreaterOrEqual(t, tokens, 12, "seed %d", seed)

		assert.Equal(t, 1, caps[0])
		ratchets := 0
		for i, run := range tokenRuns(deck) {
			if i > 0 {
				step := caps[i] - caps[i-1]
				assert.Contains(t, []int{0, 1}, step, "seed %d position %d", seed, i)
				ratchets += step
			}
			assert.Equal(t, 1+ratchets, caps[i])
			assert.LessOrEqual(t, run, caps[i], "seed %d position %d", seed, i)
			if run >= 3 {
				assert.GreaterOrEqual(t, ratchets, 2, "seed %d position %d", seed, i)
			}
		}
	}
}

func TestBuildCappedNeverForcesTokenRuns(t *testing.T) {
	// Too few non-tokens to separate the tokens: the deck ends short rather
	// than stacking the leftovers.
	entries := []cards.Entry{
		nonToken("Walker", 5),
		token("Zombie", 40),
	}
	for seed := int64(1); seed <= 10; seed++ {
		b := newTestBuilder(t, seed)
		deck, caps, err := b.build(entries, Options{
			NumberOfSurvivors: 1,
			TokenProportion:   0.9,
			Mode:              ModeGeometricBoosted,
		})
		require.NoError(t, err)
		assert.Less(t, len(deck), 45, "seed %d", seed)
		for i, run := range tokenRuns(deck) {
			assert.LessOrEqual(t, run, caps[i], "seed %d position %d", seed, i)
		}
	}
}

func TestBuildGeometricIsUncapped(t *testing.T) {
	b := newTestBuilder(t, 11)
	_, caps, err := b.build(largeCatalog(), Options{NumberOfSurvivors: 4, TokenProportion: 0.3, Mode: ModeGeometric})
	require.NoError(t, err)
	for _, c := range caps {
		assert.Equal(t, math.MaxInt, c)
	}
}

func TestBuildEscalationFrontLoadsTokens(t *testing.T) {
	b := newTestBuilder(t, 5)
	deck, err := b.Build(largeCatalog(), Options{NumberOfSurvivors: 4, TokenProportion: 0.3, Mode: ModeEscalation})
	require.NoError(t, err)
	require.Len(t, deck, 100)

	first := countTokens(deck[:33])
	last := countTokens(deck[66:])
	assert.LessOrEqual(t, first, 15)
	assert.LessOrEqual(t, last, 5)
	assert.Greater(t, first, last)
}

func TestBuildRandomFillsShortfall(t *testing.T) {
	entries := []cards.Entry{
		nonToken("Walker", 50),
		token("Zombie", 1),
		token("Rat", 1),
	}
	b := newTestBuilder(t, 9)
	deck, err := b.Build(entries, Options{NumberOfSurvivors: 1, TokenProportion: 0.5, Mode: ModeRandom})
	require.NoError(t, err)

	// floor(45*0.5)=22 tokens, 11 per template, 23 non-tokens.
	assert.Len(t, deck, 45)
	assert.Equal(t, 22, countTokens(deck))
}

func TestBuildWithoutTokens(t *testing.T) {
	entries := []cards.Entry{nonToken("Walker", 50)}
	for _, mode := range Modes {
		b := newTestBuilder(t, 2)
		deck, err := b.Build(entries, Options{NumberOfSurvivors: 1, TokenProportion: 0.5, Mode: mode})
		require.NoError(t, err, mode)
		assert.Len(t, deck, 45, mode)
		assert.Zero(t, countTokens(deck), mode)
	}
}

func TestBuildSmallCatalogNeverExceedsTarget(t *testing.T) {
	entries := []cards.Entry{nonToken("Walker", 10), token("Zombie", 4)}
	for _, mode := range Modes {
		b := newTestBuilder(t, 4)
		deck, err := b.Build(entries, Options{NumberOfSurvivors: 1, TokenProportion: 0.5, Mode: mode})
		require.NoError(t, err, mode)
		assert.LessOrEqual(t, len(deck), 45, mode)
	}
}

func TestBuildUnknownMode(t *testing.T) {
	b := newTestBuilder(t, 1)
	_, err := b.Build(largeCatalog(), Options{NumberOfSurvivors: 1, Mode: "spiral"})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeGeometricBoosted, m)

	m, err = ParseMode("escalation")
	require.NoError(t, err)
	assert.Equal(t, ModeEscalation, m)

	_, err = ParseMode("nope")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func lateGameDeck(size, lateIndex int) []cards.Card {
	deck := make([]cards.Card, size)
	for i := range deck {
		deck[i] = cards.Card{UID: fmt.Sprintf("c%d", i), Layout: "normal"}
	}
	deck[lateIndex].CustomTags = []string{cards.LateGameTag}
	return deck
}

func lateGamePosition(deck []cards.Card) int {
	for i, c := range deck {
		if c.IsLateGame() {
			return i
		}
	}
	return -1
}

func TestBiasedShuffleKeepsLateGameCardsBack(t *testing.T) {
	const size, middle = 20, 10
	for seed := int64(0); seed < 100; seed++ {
		deck := shuffle(rand.New(rand.NewSource(seed)), lateGameDeck(size, middle), 1.0)
		require.Len(t, deck, size)
		assert.GreaterOrEqual(t, lateGamePosition(deck), middle, "seed %d", seed)
	}
}

func TestUnbiasedShuffleCanMoveLateGameCardsForward(t *testing.T) {
	const size, middle = 20, 10
	movedForward := false
	for seed := int64(0); seed < 100; seed++ {
		deck := shuffle(rand.New(rand.NewSource(seed)), lateGameDeck(size, middle), 0)
		if lateGamePosition(deck) < middle {
			movedForward = true
			break
		}
	}
	assert.True(t, movedForward)
}

func TestBiasMalus(t *testing.T) {
	card := cards.Card{Rarity: "mythic", ConvertedManaCost: 6}
	assert.InDelta(t, 0.11, biasMalus(card), 1e-9)
	assert.Zero(t, biasMalus(cards.Card{}))
}
