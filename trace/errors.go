package trace

import (
	"errors"
	"fmt"

	"github.com/hupe1980/epictree/model"
)

var (
	// ErrNoFetcher is returned when a non-resident channel must be loaded
	// but no fetcher has been configured.
	ErrNoFetcher = errors.New("trace: no fetcher configured for lazy payloads")

	errTruncatedSamples = errors.New("trace: truncated sample payload")
)

// ChannelNotFoundError is returned when an epoch has no channel recorded
// for the requested device.
type ChannelNotFoundError struct {
	Device   string
	StableID model.StableID
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("trace: epoch %s has no channel for device %q", e.StableID, e.Device)
}

// LengthMismatchError is returned when a trace's sample count differs from
// the matrix row length established by the first extracted trace.
type LengthMismatchError struct {
	Device   string
	StableID model.StableID
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("trace: epoch %s device %q has %d samples, want %d", e.StableID, e.Device, e.Actual, e.Expected)
}

// NotFoundError is returned when a bundle has no entry for the requested
// payload reference.
type NotFoundError struct {
	Ref model.SignalRef
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("trace: payload %s not found in bundle", e.Ref)
}
