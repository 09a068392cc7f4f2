package epictree

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/mask"
	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/split"
	"github.com/hupe1980/epictree/store"
	"github.com/hupe1980/epictree/trace"
	"github.com/hupe1980/epictree/tree"
)

// Tree is the top-level handle: a canonical epoch store plus an optional
// built hierarchy over it. Selection state lives in the store, so masks
// and data extraction work with or without a built hierarchy.
//
// Tree is not safe for concurrent mutation; see the package documentation.
type Tree struct {
	store *store.Store
	root  *tree.Node
	masks *mask.Store
	opts  options
}

// New ingests an export into a canonical epoch store. All epochs start
// selected. An export with no epochs is accepted with a warning; builds
// over it yield a valid empty leaf root.
func New(export *model.Export, optFns ...Option) (*Tree, error) {
	opts := applyOptions(optFns)

	st := store.New(export)
	opts.logger.LogIngest(context.Background(), st.Len())

	return &Tree{
		store: st,
		masks: mask.NewStore(nil, opts.codec),
		opts:  opts,
	}, nil
}

// Store returns the underlying epoch store.
func (t *Tree) Store() *store.Store { return t.store }

// Len returns the total number of epochs.
func (t *Tree) Len() int { return t.store.Len() }

// SelectedCount returns the number of currently selected epochs.
func (t *Tree) SelectedCount() int { return t.store.SelectedCount() }

// Build constructs the hierarchy from the given splitters, replacing any
// previously built tree. Selection state is unaffected: it lives in the
// store, not in the nodes.
func (t *Tree) Build(ctx context.Context, splitters ...split.Splitter) error {
	root, err := tree.Build(t.store, splitters...)
	if err != nil {
		t.opts.logger.LogBuild(ctx, t.store.Len(), len(splitters), 0, err)
		return translateError(err)
	}
	t.root = root

	leaves := 0
	root.Walk(func(n *tree.Node) {
		if n.IsLeaf() {
			leaves++
		}
	})
	t.opts.logger.LogBuild(ctx, t.store.Len(), len(splitters), leaves, nil)
	return nil
}

// Root returns the root of the built hierarchy, or nil before Build.
func (t *Tree) Root() *tree.Node { return t.root }

// AllEpochs returns every epoch in stable store order.
func (t *Tree) AllEpochs() []store.Record { return t.store.Records() }

// SelectedEpochs returns the selected epochs. With a built tree, order
// follows the hierarchy; otherwise it follows the store.
func (t *Tree) SelectedEpochs() []store.Record {
	if t.root != nil {
		return t.root.Epochs(true)
	}
	var out []store.Record
	for _, r := range t.store.Records() {
		if r.Selected() {
			out = append(out, r)
		}
	}
	return out
}

// SaveMask writes the current selection state to path as a mask file.
func (t *Tree) SaveMask(ctx context.Context, path string) error {
	err := t.masks.Save(t.store, t.opts.basename, path, t.opts.clock())
	t.opts.logger.LogMaskSave(ctx, path, t.store.Len(), err)
	return translateError(err)
}

// SaveMaskAuto writes the selection state to the configured mask
// directory under a timestamped filename and returns the path. Filenames
// sort lexicographically in chronological order.
func (t *Tree) SaveMaskAuto(ctx context.Context) (string, error) {
	path := filepath.Join(t.opts.maskDir, mask.Filename(t.opts.basename, t.opts.clock()))
	if err := t.SaveMask(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// LoadMask applies the mask file at path to the store by stable ID and
// refreshes the node selection caches of a built tree.
func (t *Tree) LoadMask(ctx context.Context, path string) (mask.Summary, error) {
	summary, err := t.masks.Load(t.store, path)
	t.opts.logger.LogMaskLoad(ctx, path, summary.Matched, summary.Unmatched, err)
	if err != nil {
		return summary, translateError(err)
	}
	if t.root != nil {
		t.root.RefreshSelectionCache()
	}
	return summary, nil
}

// LoadLatestMask finds and applies the newest mask for the configured
// basename in the mask directory. Returns ErrNotFound when no mask
// exists.
func (t *Tree) LoadLatestMask(ctx context.Context) (string, mask.Summary, error) {
	path, ok, err := t.masks.FindLatest(t.opts.maskDir, t.opts.basename)
	if err != nil {
		return "", mask.Summary{}, translateError(err)
	}
	if !ok {
		return "", mask.Summary{}, fmt.Errorf("%w: no mask for %q in %s", ErrNotFound, t.opts.basename, t.opts.maskDir)
	}
	summary, err := t.LoadMask(ctx, path)
	return path, summary, err
}

// SelectedData assembles the data matrix for device across the selected
// epochs. Non-resident channels are loaded through the configured
// fetcher and cached on their records.
func (t *Tree) SelectedData(ctx context.Context, device string) (*trace.Matrix, error) {
	return t.Data(ctx, device, t.SelectedEpochs())
}

// Data assembles the data matrix for device across the given records.
func (t *Tree) Data(ctx context.Context, device string, records []store.Record) (*trace.Matrix, error) {
	m, err := trace.Extract(ctx, records, device, t.opts.fetcher)
	if err != nil {
		t.opts.logger.LogExtract(ctx, device, 0, 0, err)
		return nil, translateError(err)
	}
	t.opts.logger.LogExtract(ctx, device, m.Rows(), m.Cols(), nil)
	return m, nil
}

// NodeData assembles the data matrix for device across a node's epochs.
func (t *Tree) NodeData(ctx context.Context, n *tree.Node, device string, onlySelected bool) (*trace.Matrix, error) {
	if n == nil {
		return nil, ErrNotBuilt
	}
	return t.Data(ctx, device, n.Epochs(onlySelected))
}

// SaveBundle writes every resident channel payload into a trace bundle
// named name in bs, so a later session can drop the samples and refetch
// them lazily. Channels that already carry a payload reference keep it;
// others are indexed under a path derived from the channel role, device,
// and epoch ID, so a stimulus sharing a device name with a response gets
// its own entry.
// Returns the number of payloads written.
func (t *Tree) SaveBundle(ctx context.Context, bs blobstore.BlobStore, name string) (int, error) {
	w, err := bs.Create(ctx, name)
	if err != nil {
		return 0, translateError(err)
	}

	bw, err := trace.NewBundleWriter(w, t.opts.codec, t.opts.compression)
	if err != nil {
		_ = w.Close()
		return 0, translateError(err)
	}

	appendChannels := func(r store.Record, role string, chans []model.Channel) error {
		for i := range chans {
			ch := &chans[i]
			if !ch.Resident() {
				continue
			}
			ref := ch.Ref
			if ref.IsZero() {
				ref = model.SignalRef{
					File: name,
					Path: fmt.Sprintf("/%s/%s/%s", role, ch.Device, r.StableID()),
				}
			}
			sig := trace.Signal{Samples: ch.Samples, SampleRate: ch.SampleRate, Units: ch.Units}
			if err := bw.Append(ref, sig); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range t.store.Records() {
		if err := appendChannels(r, "responses", r.Responses()); err != nil {
			_ = bw.Close()
			return 0, translateError(err)
		}
		if err := appendChannels(r, "stimuli", r.Stimuli()); err != nil {
			_ = bw.Close()
			return 0, translateError(err)
		}
	}

	n := bw.Len()
	if err := bw.Close(); err != nil {
		return 0, translateError(err)
	}
	return n, nil
}
