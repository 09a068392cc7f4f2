// Package tree builds and navigates the epoch hierarchy.
//
// A build recursively partitions the flat epoch collection with a splitter
// sequence, producing internal grouping nodes and terminal leaves that
// alias the canonical store. Rebuilding with different splitters replaces
// the node graph wholesale; nodes are never edited in place.
//
// Selection state lives in the store. Nodes only carry a derived
// any-selected cache that must be refreshed explicitly after out-of-band
// flag changes.
package tree
