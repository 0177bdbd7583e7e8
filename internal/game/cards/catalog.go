package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownDeck     = errors.New("unknown deck")
	ErrInvalidQuantity = errors.New("catalog entry quantity must be at least 1")
)

// Entry is one catalog line: a template and how many copies the deck holds.
type Entry struct {
	Quantity int      `json:"qty" yaml:"qty"`
	Card     Template `json:"card" yaml:"card"`
}

// Catalog maps deck names to their entries. It is read-only once loaded.
type Catalog map[string][]Entry

// Deck returns the entries of the named deck.
func (c Catalog) Deck(name string) ([]Entry, error) {
	entries, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeck, name)
	}
	return entries, nil
}

// Names returns the deck names in lexical order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every entry of every deck.
func (c Catalog) Validate() error {
	for name, entries := range c {
		for i, entry := range entries {
			if entry.Quantity < 1 {
				return fmt.Errorf("deck %q entry %d (%s): %w", name, i, entry.Card.Name, ErrInvalidQuantity)
			}
		}
	}
	return nil
}

// LoadCatalog reads a catalog from path. A directory yields one deck per
// .json/.yaml/.yml file, named after the file. A single file must hold a
// mapping of deck name to entries.
func LoadCatalog(path string) (Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}

	catalog := make(Catalog)
	if !info.IsDir() {
		if err := decodeFile(path, &catalog); err != nil {
			return nil, err
		}
		return catalog, catalog.Validate()
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !isCatalogFile(f.Name()) {
			continue
		}
		var entries []Entry
		if err := decodeFile(filepath.Join(path, f.Name()), &entries); err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		catalog[name] = entries
	}

	return catalog, catalog.Validate()
}

func isCatalogFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
