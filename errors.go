package epictree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/mask"
	"github.com/hupe1980/epictree/trace"
)

var (
	// ErrNotFound is returned when a mask file, bundle, or payload does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotBuilt is returned when an operation needs a built tree and
	// Build has not been called.
	ErrNotBuilt = errors.New("tree not built")
)

// translateError normalizes errors from internal packages to the public
// taxonomy. Typed errors (mask.ErrCountMismatch, trace.LengthMismatchError,
// ...) pass through unchanged and remain matchable with errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, mask.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var tnf *trace.NotFoundError
	if errors.As(err, &tnf) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
