package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, slot string, data []byte) error {
	key, err := SlotKey(slot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.slots[key] = slices.Clone(data)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, slot string) ([]byte, error) {
	key, err := SlotKey(slot)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, key)
	}
	return slices.Clone(data), nil
}

func (s *MemoryStore) Delete(_ context.Context, slot string) error {
	key, err := SlotKey(slot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error { return nil }
