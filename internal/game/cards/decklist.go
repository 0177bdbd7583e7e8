package cards

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrDecklistLine = errors.New("malformed decklist line")
)

// DecklistLine is one "<qty> <name>" line of a plain-text decklist. A name of
// the form "id:<n>" references a card by multiverse id instead.
type DecklistLine struct {
	Quantity     int
	Name         string
	MultiverseID int
}

// ParseDecklist reads a decklist. Blank lines and lines starting with # or
// // are skipped.
func ParseDecklist(r io.Reader) ([]DecklistLine, error) {
	var lines []DecklistLine
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}

		qty, name, ok := strings.Cut(text, " ")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w %d: %q", ErrDecklistLine, n, text)
		}
		quantity, err := strconv.Atoi(strings.TrimSuffix(qty, "x"))
		if err != nil || quantity < 1 {
			return nil, fmt.Errorf("%w %d: bad quantity %q", ErrDecklistLine, n, qty)
		}

		line := DecklistLine{Quantity: quantity, Name: name}
		if id, found := strings.CutPrefix(name, "id:"); found {
			line.MultiverseID, err = strconv.Atoi(id)
			if err != nil {
				return nil, fmt.Errorf("%w %d: bad multiverse id %q", ErrDecklistLine, n, id)
			}
			line.Name = ""
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decklist: %w", err)
	}
	return lines, nil
}

// Resolver looks up card templates from an external card database.
type Resolver interface {
	Named(ctx context.Context, name string) (Template, error)
	ByMultiverseID(ctx context.Context, id int) (Template, error)
}

// ImportDeck resolves every decklist line into catalog entries. Cards the
// resolver does not know are logged and skipped; other errors abort.
func ImportDeck(ctx context.Context, lines []DecklistLine, resolver Resolver, logger *zap.Logger) ([]Entry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var (
			tmpl Template
			err  error
		)
		if line.MultiverseID != 0 {
			tmpl, err = resolver.ByMultiverseID(ctx, line.MultiverseID)
		} else {
			tmpl, err = resolver.Named(ctx, line.Name)
		}
		if errors.Is(err, ErrCardNotFound) {
			logger.Warn("card not found, skipping",
				zap.String("name", line.Name),
				zap.Int("multiverse_id", line.MultiverseID),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Debug("card resolved", zap.String("name", tmpl.Name), zap.Int("qty", line.Quantity))
		entries = append(entries, Entry{Quantity: line.Quantity, Card: tmpl})
	}
	return entries, nil
}
