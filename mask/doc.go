// Package mask persists per-epoch selection state to versioned .ugm files
// keyed by stable epoch identifiers.
//
// Matching on stable ids rather than position makes a saved mask portable
// across re-exports and tree rebuilds that reorder the epoch set. Loads
// that would silently corrupt selection (count mismatch, id-less masks)
// refuse outright; partial matches complete and report summary counts,
// because a mask that matches most epochs is still useful.
package mask
