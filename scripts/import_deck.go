package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/scryfall"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Usage: go run ./scripts/import_deck.go <decklist.txt> <decks/name.json|.yaml>
func main() {
	ctx := context.Background()

	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <decklist> <output>", filepath.Base(os.Args[0]))
	}
	listPath, outPath := os.Args[1], os.Args[2]

	fmt.Println("=== Horde Deck Import ===")
	fmt.Printf("Decklist: %s\n", listPath)

	file, err := os.Open(listPath)
	if err != nil {
		log.Fatalf("Failed to open decklist: %v", err)
	}
	lines, err := cards.ParseDecklist(file)
	file.Close()
	if err != nil {
		log.Fatalf("Failed to parse decklist: %v", err)
	}
	fmt.Printf("Found %d decklist lines\n", len(lines))

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	client := scryfall.NewClient(os.Getenv("SCRYFALL_URL"), logger)
	defer client.Close()

	startTime := time.Now()
	entries, err := cards.ImportDeck(ctx, lines, client, logger)
	if err != nil {
		log.Fatalf("Failed to import deck: %v", err)
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(entries)
	default:
		data, err = json.MarshalIndent(entries, "", "  ")
	}
	if err != nil {
		log.Fatalf("Failed to encode deck: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write deck: %v", err)
	}

	total, tokens := 0, 0
	for _, e := range entries {
		total += e.Quantity
		if e.Card.IsToken() {
			tokens += e.Quantity
		}
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("✓ Resolved: %d/%d lines\n", len(entries), len(lines))
	fmt.Printf("Cards: %d (%d tokens)\n", total, tokens)
	fmt.Printf("Time taken: %s\n", time.Since(startTime))
	fmt.Printf("Deck written to %s\n", outPath)
}
