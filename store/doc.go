// Package store holds the canonical ordered epoch collection and the
// per-epoch selection flags.
//
// The store is the single source of truth for selection state: the flags
// live in a roaring bitmap keyed by internal index, and the Record type is
// a handle (store pointer + index) rather than a value, so there is no way
// to "mutate" a detached copy without the store observing it. Tree leaves,
// filtered query results and matrix extraction all alias the same backing
// records.
package store
