// Command deckcheck builds many Horde decks per distribution mode and reports
// how tokens end up laid out.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/game/deckbuilder"
	"go.uber.org/zap"
)

var (
	catalogPath = flag.String("catalog", "decks", "deck directory or catalog file")
	deckName    = flag.String("deck", "", "deck to check (required)")
	survivors   = flag.Int("survivors", 1, "number of survivors")
	proportion  = flag.Float64("p", 0.6, "token proportion")
	bias        = flag.Float64("bias", 0, "shuffle bias factor")
	runs        = flag.Int("runs", 200, "decks built per mode")
	seed        = flag.Int64("seed", 1, "random seed")
	verbose     = flag.Bool("v", false, "log every build")
)

type summary struct {
	tokens, size, longestRun, firstNonToken float64
	maxRun                                  int
}

func main() {
	flag.Parse()
	if *deckName == "" || *runs < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	catalog, err := cards.LoadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}
	entries, err := catalog.Deck(*deckName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v (available: %v)\n", err, catalog.Names())
		os.Exit(1)
	}

	fmt.Printf("Deck %s, %d survivor(s), p=%.2f, target size %d, %d runs\n\n",
		*deckName, *survivors, *proportion, deckbuilder.TargetSize(*survivors, entries), *runs)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tSIZE\tTOKENS\tAVG LONGEST RUN\tMAX RUN\tAVG FIRST NON-TOKEN")
	for _, mode := range deckbuilder.Modes {
		builder := deckbuilder.NewBuilder(rand.New(rand.NewSource(*seed)), logger)
		var s summary
		for i := 0; i < *runs; i++ {
			deck, err := builder.Build(entries, deckbuilder.Options{
				NumberOfSurvivors: *survivors,
				TokenProportion:   *proportion,
				Mode:              mode,
				ShuffleBiasFactor: *bias,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Build failed for %s: %v\n", mode, err)
				os.Exit(1)
			}
			shape := deckbuilder.Describe(deck)
			s.size += float64(shape.Size)
			s.tokens += float64(shape.Tokens)
			s.longestRun += float64(shape.LongestTokenRun)
			s.firstNonToken += float64(shape.FirstNonToken)
			s.maxRun = max(s.maxRun, shape.LongestTokenRun)
		}
		n := float64(*runs)
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.2f\t%d\t%.2f\n",
			mode, s.size/n, s.tokens/n, s.longestRun/n, s.maxRun, s.firstNonToken/n)
	}
	w.Flush()
}
