package deckbuilder

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"go.uber.org/zap"
)

// Mode selects how tokens are interleaved with non-tokens in the Horde deck.
type Mode string

const (
	ModeGeometric        Mode = "geometric"
	ModeGeometricBoosted Mode = "geometric_boosted"
	ModeRandom           Mode = "random"
	ModeEscalation       Mode = "escalation"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeGeometricBoosted

// Modes lists every supported distribution mode.
var Modes = []Mode{ModeGeometric, ModeGeometricBoosted, ModeRandom, ModeEscalation}

var ErrUnknownMode = errors.New("distribution mode is not supported")

// ParseMode validates a mode name. The empty string maps to DefaultMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Options configures a single deck build.
type Options struct {
	NumberOfSurvivors int
	TokenProportion   float64
	Mode              Mode
	// ShuffleBiasFactor enables the late-game biased shuffle when positive.
	ShuffleBiasFactor float64
}

// TargetSize returns the Horde deck size for a survivor count. Counts outside
// 1..4 are unbounded and use every catalog card.
func TargetSize(numberOfSurvivors int, entries []cards.Entry) int {
	switch numberOfSurvivors {
	case 1:
		return 45
	case 2:
		return 60
	case 3:
		return 75
	case 4:
		return 100
	}
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

// Builder turns catalog decks into shuffled Horde decks.
type Builder struct {
	rng    *rand.Rand
	newUID func() string
	logger *zap.Logger
}

// NewBuilder creates a builder drawing randomness from rng. A nil rng uses a
// time-seeded generator.
func NewBuilder(rng *rand.Rand, logger *zap.Logger) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		rng:    rng,
		newUID: cards.NewUID,
		logger: logger,
	}
}

// SetUIDSource replaces the card uid generator.
func (b *Builder) SetUIDSource(fn func() string) {
	if fn != nil {
		b.newUID = fn
	}
}

// Build creates the Horde deck for the given catalog entries.
func (b *Builder) Build(entries []cards.Entry, opts Options) ([]cards.Card, error) {
	deck, _, err := b.build(entries, opts)
	return deck, err
}

// build also returns, for each position, the consecutive-token cap that was
// in force when the card was placed. Uncapped placements record math.MaxInt.
func (b *Builder) build(entries []cards.Entry, opts Options) ([]cards.Card, []int, error) {
	mode := opts.Mode
	if mode == "" {
		mode = DefaultMode
	}

	var (
		deck []cards.Card
		caps []int
	)
	switch mode {
	case ModeGeometric:
		deck, caps = b.geometric(entries, opts, false)
	case ModeGeometricBoosted:
		deck, caps = b.geometric(entries, opts, true)
	case ModeRandom:
		deck = b.random(entries, opts)
	case ModeEscalation:
		deck, caps = b.escalation(entries, opts)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	b.logger.Debug("built horde deck",
		zap.String("mode", string(mode)),
		zap.Int("survivors", opts.NumberOfSurvivors),
		zap.Float64("token_proportion", opts.TokenProportion),
		zap.Int("cards", len(deck)),
		zap.Int("tokens", countTokens(deck)),
	)

	return deck, caps, nil
}

// geometric fills the deck slot by slot; slot i holds a token with
// probability 1 - e^(-0.2(i+1)). The boosted variant caps runs of tokens.
func (b *Builder) geometric(entries []cards.Entry, opts Options, capped bool) ([]cards.Card, []int) {
	totalCards := TargetSize(opts.NumberOfSurvivors, entries)
	numberOfTokens := int(math.Round(float64(totalCards) * opts.TokenProportion))

	tokens := shuffle(b.rng, b.expandTokens(entries, numberOfTokens), opts.ShuffleBiasFactor)
	nonTokens := shuffle(b.rng, b.expandNonTokens(entries), opts.ShuffleBiasFactor)

	f := newFiller(b.rng, tokens, nonTokens, totalCards)
	f.fill(totalCards, len(tokens), capped)
	return f.deck, f.caps
}

// escalation splits the deck in thirds with decreasing token density, each
// third filled with the capped geometric logic.
func (b *Builder) escalation(entries []cards.Entry, opts Options) ([]cards.Card, []int) {
	totalCards := TargetSize(opts.NumberOfSurvivors, entries)
	segmentSize := totalCards / 3
	lastSegmentSize := totalCards - segmentSize*2

	p := opts.TokenProportion
	segments := []struct {
		size  int
		ratio float64
	}{
		{segmentSize, math.Min(p+0.15, 0.9)},
		{segmentSize, p},
		{lastSegmentSize, math.Max(p-0.15, 0.1)},
	}

	numberOfTokens := int(math.Round(float64(totalCards) * p))
	tokens := shuffle(b.rng, b.expandTokens(entries, numberOfTokens), opts.ShuffleBiasFactor)
	nonTokens := shuffle(b.rng, b.expandNonTokens(entries), opts.ShuffleBiasFactor)

	f := newFiller(b.rng, tokens, nonTokens, totalCards)
	for _, seg := range segments {
		f.fill(seg.size, int(math.Round(float64(seg.size)*seg.ratio)), true)
	}
	return f.deck, f.caps
}

// random places exact token and non-token counts, shuffles them together and
// tops up any shortfall with unused non-tokens.
func (b *Builder) random(entries []cards.Entry, opts Options) []cards.Card {
	totalCards := TargetSize(opts.NumberOfSurvivors, entries)
	expectedTokens := int(math.Floor(float64(totalCards) * opts.TokenProportion))
	expectedNonTokens := totalCards - expectedTokens

	tokens := shuffle(b.rng, b.expandTokens(entries, expectedTokens), 0)
	nonTokens := shuffle(b.rng, b.expandNonTokens(entries), 0)

	var rest []cards.Card
	if len(nonTokens) > expectedNonTokens {
		rest = nonTokens[expectedNonTokens:]
		nonTokens = nonTokens[:expectedNonTokens]
	}

	deck := make([]cards.Card, 0, totalCards)
	deck = append(deck, tokens...)
	deck = append(deck, nonTokens...)
	deck = shuffle(b.rng, deck, 0)

	for len(deck) < totalCards && len(rest) > 0 {
		i := b.rng.Intn(len(rest))
		deck = append(deck, rest[i])
		rest = append(rest[:i], rest[i+1:]...)
	}

	return shuffle(b.rng, deck, opts.ShuffleBiasFactor)
}

// expandTokens instantiates the token pool. Each token template gets a share
// of numberOfTokens proportional to its catalog quantity, rounded down.
func (b *Builder) expandTokens(entries []cards.Entry, numberOfTokens int) []cards.Card {
	totalTokens := 0
	for _, e := range entries {
		if e.Card.IsToken() {
			totalTokens += e.Quantity
		}
	}
	if totalTokens == 0 || numberOfTokens <= 0 {
		return nil
	}

	var out []cards.Card
	for _, e := range entries {
		if !e.Card.IsToken() {
			continue
		}
		n := int(math.Floor(float64(e.Quantity) / float64(totalTokens) * float64(numberOfTokens)))
		for i := 0; i < n; i++ {
			out = append(out, cards.Instantiate(e.Card, b.rng, b.newUID()))
		}
	}
	return out
}

func (b *Builder) expandNonTokens(entries []cards.Entry) []cards.Card {
	var out []cards.Card
	for _, e := range entries {
		if e.Card.IsToken() {
			continue
		}
		for i := 0; i < e.Quantity; i++ {
			out = append(out, cards.Instantiate(e.Card, b.rng, b.newUID()))
		}
	}
	return out
}

func countTokens(deck []cards.Card) int {
	n := 0
	for _, c := range deck {
		if c.IsToken() {
			n++
		}
	}
	return n
}

// filler draws from shuffled token and non-token pools to lay out a deck.
type filler struct {
	rng         *rand.Rand
	tokens      []cards.Card
	nonTokens   []cards.Card
	tokenIdx    int
	nonTokenIdx int
	deck        []cards.Card
	caps        []int
}

func newFiller(rng *rand.Rand, tokens, nonTokens []cards.Card, size int) *filler {
	return &filler{
		rng:       rng,
		tokens:    tokens,
		nonTokens: nonTokens,
		deck:      make([]cards.Card, 0, size),
		caps:      make([]int, 0, size),
	}
}

// fill lays out the next size slots, aiming for tokenBudget tokens.
//
// A slot takes a token when the geometric draw asks for one, or when the
// non-token side of the budget is used up, as long as the run cap allows it.
// Otherwise it takes a non-token, past the non-token budget if needed. Only
// the ratchet raises the cap: in capped mode every slot where the draw did not
// ask for a token has a 10% chance to raise it by one. When the non-token pool
// is empty and the cap blocks the remaining tokens the fill stops short.
func (f *filler) fill(size, tokenBudget int, capped bool) {
	maxInARow := math.MaxInt
	if capped {
		maxInARow = 1
	}
	nonTokenBudget := size - tokenBudget

	inARow, placedTokens, placedNonTokens := 0, 0, 0
	for i := 0; i < size; i++ {
		probability := 1 - math.Exp(-0.2*float64(i+1))
		shouldAddToken := f.rng.Float64() < probability

		tokensLeft := f.tokenIdx < len(f.tokens)
		nonTokensLeft := f.nonTokenIdx < len(f.nonTokens)
		capAllows := inARow < maxInARow
		wantToken := tokensLeft && placedTokens < tokenBudget && capAllows
		wantNonToken := nonTokensLeft && placedNonTokens < nonTokenBudget

		switch {
		case wantToken && (shouldAddToken || !wantNonToken):
			f.placeToken(maxInARow)
			inARow++
			placedTokens++
		case nonTokensLeft:
			f.placeNonToken(maxInARow)
			inARow = 0
			placedNonTokens++
		case tokensLeft && capAllows:
			f.placeToken(maxInARow)
			inARow++
			placedTokens++
		default:
			return
		}

		if capped && !shouldAddToken && f.rng.Float64() < 0.1 {
			maxInARow++
		}
	}
}

func (f *filler) placeToken(limit int) {
	f.deck = append(f.deck, f.tokens[f.tokenIdx])
	f.caps = append(f.caps, limit)
	f.tokenIdx++
}

func (f *filler) placeNonToken(limit int) {
	f.deck = append(f.deck, f.nonTokens[f.nonTokenIdx])
	f.caps = append(f.caps, limit)
	f.nonTokenIdx++
}
