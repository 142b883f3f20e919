// Package uistate models the closed vocabulary of application states and the
// observable set of states that are currently active. Enablement of every
// interactive action is derived from this set.
package uistate

import (
	"fmt"
	"strings"
)

// StateFlag is one named application condition. The vocabulary is closed:
// only the constants declared below are valid flags.
type StateFlag uint8

const (
	// Init is the state the application starts in before any transition.
	Init StateFlag = iota
	// DataLoaded indicates image data is held in memory.
	DataLoaded
	// DataUnloaded indicates no image data is held.
	DataUnloaded
	// DataSaved indicates the current data has been written out.
	DataSaved
	// DataProcessing indicates a processing operation is running on the data.
	DataProcessing
	// DataProcessed indicates a processing operation finished.
	DataProcessed
	// DataInvalid indicates the held data cannot be used.
	DataInvalid
	// ActionCanceled indicates the last action was abandoned.
	ActionCanceled
	// ActionExecuted indicates an action was triggered.
	ActionExecuted
	// ActionAccepted indicates a triggered action passed its input checks.
	ActionAccepted
	// FileOpen indicates a file is open.
	FileOpen
	// FileClosed indicates no file is open.
	FileClosed
	// FileSaved indicates the open data was saved to a file.
	FileSaved
	// UserInteracting indicates the user is in the middle of an interaction.
	UserInteracting
	// Busy indicates a long-running operation is in flight.
	Busy

	flagCount
)

var flagNames = [flagCount]string{
	Init:            "init",
	DataLoaded:      "data_loaded",
	DataUnloaded:    "data_unloaded",
	DataSaved:       "data_saved",
	DataProcessing:  "data_processing",
	DataProcessed:   "data_processed",
	DataInvalid:     "data_invalid",
	ActionCanceled:  "action_canceled",
	ActionExecuted:  "action_executed",
	ActionAccepted:  "action_accepted",
	FileOpen:        "file_open",
	FileClosed:      "file_closed",
	FileSaved:       "file_saved",
	UserInteracting: "user_interacting",
	Busy:            "busy",
}

// Valid reports whether f belongs to the vocabulary.
func (f StateFlag) Valid() bool { return f < flagCount }

// String returns the snake_case name of the flag.
func (f StateFlag) String() string {
	if !f.Valid() {
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
	return flagNames[f]
}

// ParseStateFlag converts a flag name, as returned by String, back to a StateFlag.
// Matching ignores case and surrounding whitespace.
func ParseStateFlag(s string) (StateFlag, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range flagNames {
		if n == name {
			return StateFlag(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, s)
}

// Flags returns every flag of the vocabulary in declaration order.
func Flags() []StateFlag {
	out := make([]StateFlag, 0, flagCount)
	for f := StateFlag(0); f < flagCount; f++ {
		out = append(out, f)
	}
	return out
}
