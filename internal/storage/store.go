package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

var (
	ErrSlotNotFound = errors.New("save slot not found")
	ErrInvalidSlot  = errors.New("invalid save slot name")
)

// Store keeps savepoints under named slots.
type Store interface {
	Put(ctx context.Context, slot string, data []byte) error
	Get(ctx context.Context, slot string) ([]byte, error)
	Delete(ctx context.Context, slot string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// SlotKey normalizes a user supplied slot name into a key that is safe as a
// file name, a table key and an object key alike.
func SlotKey(slot string) (string, error) {
	key := slug.Make(strings.TrimSpace(slot))
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return key, nil
}
