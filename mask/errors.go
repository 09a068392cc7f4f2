package mask

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a mask file does not exist.
var ErrNotFound = errors.New("mask file not found")

// ErrMalformed indicates a mask file that failed to parse or is internally
// inconsistent.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrMalformed struct {
	Path  string
	cause error
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("malformed mask file %s: %v", e.Path, e.cause)
}

func (e *ErrMalformed) Unwrap() error { return e.cause }

// ErrCountMismatch indicates a mask whose epoch count differs from the
// store it is being applied to. Applying it anyway would assign stale
// selection to a changed dataset, so the load refuses.
type ErrCountMismatch struct {
	Path     string
	Expected int
	Actual   int
}

func (e *ErrCountMismatch) Error() string {
	return fmt.Sprintf("mask %s covers %d epochs, store has %d; refusing to apply a stale mask", e.Path, e.Actual, e.Expected)
}

// ErrNoStableIDs indicates a mask without usable stable identifiers
// (legacy format 1.0, or data saved from a source without ids). Positional
// matching is intentionally not offered: it silently mis-assigned
// selection after epoch reordering. Re-export the data to obtain stable
// ids, then save a new mask.
type ErrNoStableIDs struct {
	Path    string
	Version string
}

func (e *ErrNoStableIDs) Error() string {
	return fmt.Sprintf("mask %s (format %s) carries no stable epoch ids; positional fallback is not supported, re-export and re-save", e.Path, e.Version)
}
