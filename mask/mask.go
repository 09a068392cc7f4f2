package mask

import (
	"time"

	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/store"
)

const (
	// FormatVersion is the current mask file format. Version 1.0 files
	// carried only the positional mask; 1.1 added per-epoch stable ids and
	// retired positional matching.
	FormatVersion = "1.1"

	// Ext is the mask file extension.
	Ext = ".ugm"

	// timestampLayout orders lexicographically the same as chronologically,
	// which is what FindLatest relies on.
	timestampLayout = "20060102_150405"
)

// Mask is the persisted snapshot of per-epoch selection state. Selected
// and StableIDs are parallel sequences in canonical store order; matching
// on load uses the stable ids only, so the mask survives re-exports and
// rebuilds that reorder the epoch set.
type Mask struct {
	FormatVersion   string           `json:"format_version"`
	CreatedAt       string           `json:"created"`
	TotalEpochCount int              `json:"epoch_count"`
	SourceBasename  string           `json:"source_basename,omitempty"`
	Selected        []bool           `json:"selection_mask"`
	StableIDs       []model.StableID `json:"epoch_h5_uuids"`
}

// Snapshot projects the store's current selection state into a mask.
func Snapshot(st *store.Store, basename string, now time.Time) *Mask {
	return &Mask{
		FormatVersion:   FormatVersion,
		CreatedAt:       now.Format(time.RFC3339),
		TotalEpochCount: st.Len(),
		SourceBasename:  basename,
		Selected:        st.SelectionFlags(),
		StableIDs:       st.StableIDs(),
	}
}

// usableIDs reports whether the mask carries at least one non-empty stable
// id. A mask without any (legacy 1.0 data, or non-exported sources) cannot
// be applied: the old positional scheme silently mis-assigned selection
// after reordering and is intentionally not offered.
func (m *Mask) usableIDs() bool {
	for _, id := range m.StableIDs {
		if !id.IsZero() {
			return true
		}
	}
	return false
}

// Summary reports how a loaded mask applied to the store.
type Summary struct {
	// Matched epochs had their flag restored from the mask.
	Matched int
	// Unmatched epochs were absent from the mask (or lack a stable id)
	// and defaulted to selected. A large value means the mask belongs to
	// different data.
	Unmatched int
	// Excluded is the number of epochs deselected by the load.
	Excluded int
}
