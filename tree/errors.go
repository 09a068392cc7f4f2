package tree

import "fmt"

// ErrMaskLength indicates a selection mask whose length does not match the
// node's epoch count. The mask is refused, never truncated or padded.
type ErrMaskLength struct {
	Expected int
	Actual   int
}

func (e *ErrMaskLength) Error() string {
	return fmt.Sprintf("selection mask length mismatch: node has %d epochs, mask has %d", e.Expected, e.Actual)
}

// ErrIndexOutOfRange indicates a selection index outside the node's
// flattened epoch ordering.
type ErrIndexOutOfRange struct {
	Index      int
	EpochCount int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("selection index %d out of range for node with %d epochs", e.Index, e.EpochCount)
}
