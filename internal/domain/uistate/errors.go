package uistate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is the sentinel every InvalidStateError unwraps to.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnknownFlag is returned when a flag name is not part of the vocabulary.
	ErrUnknownFlag = errors.New("unknown state flag")
)

// InvalidStateError is returned when a transition request cannot be applied
// because it references flags outside the vocabulary or no known flag at all.
// The active state is unchanged when it is returned.
type InvalidStateError struct {
	Requested Set
	Unknown   []StateFlag
}

func (e *InvalidStateError) Error() string {
	if len(e.Unknown) == 0 {
		return fmt.Sprintf("invalid state %s: request contains no known flag", e.Requested)
	}
	return fmt.Sprintf("invalid state %s: unknown flags %v", e.Requested, e.Unknown)
}

// Unwrap allows errors.Is(err, ErrInvalidState).
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
