// Package model defines core types used throughout epictree.
//
// # Identity Types
//
//   - EpochIndex: Dense, process-local index into the canonical store
//   - StableID: Externally durable per-object identifier (acquisition UUID)
//   - SignalRef: Location of out-of-line channel payload in a trace bundle
//
// # Ingest Types
//
// Export mirrors the nested document produced by the upstream export
// pipeline (experiments, cells, epoch groups, epoch blocks, epochs with
// response/stimulus channels). The store package flattens it into the
// canonical ordered epoch collection.
package model
