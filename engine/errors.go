/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidIntent is the root of every rejected intent. A rejected intent
// leaves the state untouched; callers re-render from the current snapshot.
var ErrInvalidIntent = errors.New("invalid intent")

var (
	ErrWrongPhase    = fmt.Errorf("%w: wrong phase", ErrInvalidIntent)
	ErrNotYourTurn   = fmt.Errorf("%w: not your turn", ErrInvalidIntent)
	ErrUnknownPlayer = fmt.Errorf("%w: unknown player", ErrInvalidIntent)
	ErrEliminated    = fmt.Errorf("%w: player is eliminated", ErrInvalidIntent)
	ErrResting       = fmt.Errorf("%w: player is resting", ErrInvalidIntent)
	ErrAlreadyActed  = fmt.Errorf("%w: player already acted", ErrInvalidIntent)
	ErrBadPayload    = fmt.Errorf("%w: malformed payload", ErrInvalidIntent)
)

// ErrResourceExhausted signals that a draw was required from an empty pile.
// It is not a rejection: the caller must turn it into a phase transition.
var ErrResourceExhausted = errors.New("resource exhausted")

// ErrBadRoster is returned when a game is started with an unusable roster.
var ErrBadRoster = errors.New("invalid roster")

// IsRejection reports whether err is a rules violation that should be
// treated as a silent no-op.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidIntent)
}

// Reject wraps a specific rejection with extra context.
func Reject(base error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}
