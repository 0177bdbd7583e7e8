package game

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/game/zones"
)

// Args are the positional arguments of a move. Values decoded from JSON
// arrive as float64, json.Number or map[string]any and are accepted as well.
type Args []any

// Int returns the integer at position i.
func (a Args) Int(i int) (int, error) {
	if i >= len(a) || a[i] == nil {
		return 0, fmt.Errorf("%w: missing argument %d", zones.ErrInvalidMove, i)
	}
	return toInt(a[i], i)
}

// IntOr returns the integer at position i, or def when it is absent.
func (a Args) IntOr(i, def int) (int, error) {
	if i >= len(a) || a[i] == nil {
		return def, nil
	}
	return toInt(a[i], i)
}

// BoolOr returns the boolean at position i, or def when it is absent.
func (a Args) BoolOr(i int, def bool) (bool, error) {
	if i >= len(a) || a[i] == nil {
		return def, nil
	}
	b, ok := a[i].(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %d must be a boolean, got %T", zones.ErrInvalidMove, i, a[i])
	}
	return b, nil
}

// Text returns the argument at position i rendered as a string. Numbers are
// accepted for fields such as power and toughness.
func (a Args) Text(i int) (string, error) {
	if i >= len(a) || a[i] == nil {
		return "", fmt.Errorf("%w: missing argument %d", zones.ErrInvalidMove, i)
	}
	switch v := a[i].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: argument %d must be a string, got %T", zones.ErrInvalidMove, i, a[i])
}

// Card returns the card at position i.
func (a Args) Card(i int) (cards.Card, error) {
	if i >= len(a) || a[i] == nil {
		return cards.Card{}, fmt.Errorf("%w: missing argument %d", zones.ErrInvalidMove, i)
	}
	switch v := a[i].(type) {
	case cards.Card:
		return v, nil
	case *cards.Card:
		return *v, nil
	case map[string]any, json.RawMessage:
		data, err := json.Marshal(v)
		if err != nil {
			return cards.Card{}, fmt.Errorf("%w: argument %d: %v", zones.ErrInvalidMove, i, err)
		}
		var card cards.Card
		if err := json.Unmarshal(data, &card); err != nil {
			return cards.Card{}, fmt.Errorf("%w: argument %d is not a card: %v", zones.ErrInvalidMove, i, err)
		}
		return card, nil
	}
	return cards.Card{}, fmt.Errorf("%w: argument %d must be a card, got %T", zones.ErrInvalidMove, i, a[i])
}

func toInt(v any, i int) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: argument %d must be an integer, got %v", zones.ErrInvalidMove, i, n)
		}
		return int(n), nil
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: argument %d must be an integer, got %s", zones.ErrInvalidMove, i, n)
		}
		return int(parsed), nil
	}
	return 0, fmt.Errorf("%w: argument %d must be an integer, got %T", zones.ErrInvalidMove, i, v)
}
