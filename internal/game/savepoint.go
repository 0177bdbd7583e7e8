package game

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"golang.org/x/crypto/blake2b"
)

// SavepointVersion is bumped whenever the serialized State changes shape.
const SavepointVersion = 1

// Savepoint is the envelope written to a save slot.
type Savepoint struct {
	Version  int             `json:"version"`
	Keys     []string        `json:"keys"`
	Checksum string          `json:"checksum"`
	State    json.RawMessage `json:"state"`
}

// EncodeSavepoint serializes a deep snapshot of state.
func EncodeSavepoint(state State) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	data, err := json.Marshal(Savepoint{
		Version:  SavepointVersion,
		Keys:     slices.Clone(StateKeys),
		Checksum: checksum(raw),
		State:    raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode savepoint: %w", err)
	}
	return data, nil
}

// DecodeSavepoint parses a savepoint. A bare serialized State without the
// envelope is accepted too. Either way every top-level state key must be
// present.
func DecodeSavepoint(data []byte) (State, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return State{}, fmt.Errorf("%w: %w: %v", ErrConfiguration, ErrIncompatibleSavepoint, err)
	}

	raw := data
	if _, wrapped := top["state"]; wrapped {
		var sp Savepoint
		if err := json.Unmarshal(data, &sp); err != nil {
			return State{}, fmt.Errorf("%w: %w: %v", ErrConfiguration, ErrIncompatibleSavepoint, err)
		}
		if sp.Version > SavepointVersion {
			return State{}, fmt.Errorf("%w: %w: version %d", ErrConfiguration, ErrIncompatibleSavepoint, sp.Version)
		}
		if sp.Checksum != "" && sp.Checksum != checksum(sp.State) {
			return State{}, fmt.Errorf("%w: %w", ErrConfiguration, ErrChecksumMismatch)
		}
		raw = sp.State
		top = nil
		if err := json.Unmarshal(raw, &top); err != nil {
			return State{}, fmt.Errorf("%w: %w: %v", ErrConfiguration, ErrIncompatibleSavepoint, err)
		}
	}

	for _, key := range StateKeys {
		if _, ok := top[key]; !ok {
			return State{}, fmt.Errorf("%w: %w: missing key %q", ErrConfiguration, ErrIncompatibleSavepoint, key)
		}
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("%w: %w: %v", ErrConfiguration, ErrIncompatibleSavepoint, err)
	}
	return state, nil
}

func checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
