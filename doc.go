// Package epictree provides an embedded epoch-tree index for recorded
// electrophysiology data.
//
// An export (experiments, cells, epoch groups, epoch blocks, epochs) is
// flattened into a canonical in-memory epoch store. A hierarchy is then
// built over the store with splitters, selection state is toggled per
// epoch or per subtree, persisted as mask files keyed by stable IDs, and
// the selected epochs are assembled into epochs-by-samples data matrices
// with lazy payload loading.
//
// # Quick Start
//
//	ctx := context.Background()
//	tr, _ := epictree.New(export,
//	    epictree.WithMaskDir("./masks"),
//	    epictree.WithSourceBasename("2024-03-15-cell1"),
//	)
//
//	_ = tr.Build(ctx,
//	    split.ByPath("cellType"),
//	    split.ByPath("protocolName"),
//	    split.ByPath("block.params.contrast"),
//	)
//
// # Selection and Masks
//
// Every epoch starts selected. Selection lives in the store, so it
// survives rebuilding the hierarchy with different splitters:
//
//	node, _ := tr.Root().FindChild(attr.String("LedPulse"))
//	node.SetSelected(false, true) // deselect the whole subtree
//
//	path, _ := tr.SaveMaskAuto(ctx)      // timestamped .ugm file
//	_, _, _ = tr.LoadLatestMask(ctx)     // reapply in a later session
//
// Masks match epochs by stable ID, never by position, so they survive
// reordering and partial re-exports. Files without stable IDs are
// refused rather than misapplied.
//
// # Data Matrices
//
// Selected epochs are assembled into a strict N-by-L matrix per device:
//
//	m, err := tr.SelectedData(ctx, "Amp1")
//	for i := 0; i < m.Rows(); i++ {
//	    process(m.Row(i))
//	}
//
// Non-resident channels are fetched lazily from trace bundles through a
// configured fetcher (local files, S3, or MinIO via blobstore) and cached
// back onto their records.
//
// # Concurrency
//
// A Tree and its store are safe for concurrent reads, but mutation
// (selection changes, mask loads, Build) requires external
// synchronization. Typical hosts are single-operator analysis sessions.
package epictree
