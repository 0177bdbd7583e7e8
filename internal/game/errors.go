package game

import "errors"

var (
	// ErrConfiguration classifies configuration and integrity errors. They
	// abort the operation and are never turned into a rejected move.
	ErrConfiguration = errors.New("configuration error")

	ErrNotStarted            = errors.New("game has not been started")
	ErrUnknownMove           = errors.New("unknown move for phase")
	ErrIncompatibleSavepoint = errors.New("savepoint is incompatible with current version")
	ErrChecksumMismatch      = errors.New("savepoint checksum mismatch")
	ErrSessionNotFound       = errors.New("session not found")
)
