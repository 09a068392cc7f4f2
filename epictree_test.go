package epictree

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/epictree/attr"
	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/codec"
	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/split"
	"github.com/hupe1980/epictree/testutil"
	"github.com/hupe1980/epictree/trace"
	"github.com/hupe1980/epictree/tree"
)

func newTestTree(t *testing.T, optFns ...Option) *Tree {
	t.Helper()
	rng := testutil.NewRNG(4711)
	tr, err := New(testutil.MakeExport(rng, testutil.DefaultExportSpec()), optFns...)
	require.NoError(t, err)
	return tr
}

func TestNewEmptyExport(t *testing.T) {
	ctx := context.Background()

	tr, err := New(&model.Export{})
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())

	// Building over an empty store succeeds with an empty leaf root.
	require.NoError(t, tr.Build(ctx, split.ByPath("cellType")))
	root := tr.Root()
	require.NotNil(t, root)
	assert.True(t, root.IsLeaf())
	assert.Equal(t, 0, root.EpochCount())
	assert.Empty(t, tr.SelectedEpochs())
}

func TestBuildAndNavigate(t *testing.T) {
	tr := newTestTree(t)
	ctx := context.Background()

	require.NoError(t, tr.Build(ctx, split.ByPath("cellType"), split.ByPath("protocolName")))
	root := tr.Root()
	require.NotNil(t, root)
	assert.Equal(t, tr.Len(), root.EpochCount())

	n, ok := root.Children()[0].FindChild(attr.String("Chirp"))
	require.True(t, ok)
	assert.True(t, n.IsLeaf())
}

func TestSelectedEpochsWithoutBuild(t *testing.T) {
	tr := newTestTree(t)

	tr.Store().SetSelected(0, false)
	sel := tr.SelectedEpochs()
	assert.Len(t, sel, tr.Len()-1)
	assert.Len(t, tr.AllEpochs(), tr.Len())
}

func TestMaskRoundTripThroughFacade(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tr := newTestTree(t,
		WithMaskDir(dir),
		WithSourceBasename("cell1"),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	require.NoError(t, tr.Build(ctx, split.ByPath("protocolName")))

	// Deselect one protocol subtree and persist.
	n, ok := tr.Root().FindChild(attr.String("Chirp"))
	require.True(t, ok)
	n.SetSelected(false, true)
	deselected := n.EpochCount()

	path, err := tr.SaveMaskAuto(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cell1_20240315_120000.ugm"), path)

	// Reset selection, then restore from the latest mask.
	tr.Root().SetSelected(true, true)
	require.Equal(t, tr.Len(), tr.SelectedCount())

	loaded, summary, err := tr.LoadLatestMask(ctx)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	assert.Equal(t, tr.Len(), summary.Matched)
	assert.Equal(t, deselected, summary.Excluded)
	assert.Equal(t, tr.Len()-deselected, tr.SelectedCount())

	// The load refreshed the node caches.
	assert.False(t, n.AnySelected())
}

func TestLoadLatestMaskNotFound(t *testing.T) {
	tr := newTestTree(t, WithMaskDir(t.TempDir()))
	_, _, err := tr.LoadLatestMask(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSelectedData(t *testing.T) {
	tr := newTestTree(t)
	ctx := context.Background()
	require.NoError(t, tr.Build(ctx, split.ByPath("cellType")))

	tr.Root().Children()[0].SetSelected(false, true)

	m, err := tr.SelectedData(ctx, "Amp1")
	require.NoError(t, err)
	assert.Equal(t, tr.SelectedCount(), m.Rows())
	assert.Equal(t, 16, m.Cols())
}

func TestNodeData(t *testing.T) {
	tr := newTestTree(t)
	ctx := context.Background()
	require.NoError(t, tr.Build(ctx, split.ByPath("protocolName")))

	n, ok := tr.Root().FindChild(attr.String("LedPulse"))
	require.True(t, ok)

	m, err := tr.NodeData(ctx, n, "Amp1", false)
	require.NoError(t, err)
	assert.Equal(t, n.EpochCount(), m.Rows())

	_, err = tr.NodeData(ctx, nil, "Amp1", false)
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestSaveBundleAndLazyReload(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	// Session one: resident data, saved to a bundle.
	rng := testutil.NewRNG(4711)
	resident, err := New(testutil.MakeExport(rng, testutil.DefaultExportSpec()))
	require.NoError(t, err)

	n, err := resident.SaveBundle(ctx, bs, "synthetic.bundle")
	require.NoError(t, err)
	assert.Equal(t, resident.Len(), n)

	want, err := resident.SelectedData(ctx, "Amp1")
	require.NoError(t, err)

	// Session two: same export without payloads, fetched lazily.
	rng.Reset()
	spec := testutil.DefaultExportSpec()
	spec.Resident = false
	lazy, err := New(testutil.MakeExport(rng, spec),
		WithFetcher(trace.NewBundleFetcher(bs, nil)),
	)
	require.NoError(t, err)

	got, err := lazy.SelectedData(ctx, "Amp1")
	require.NoError(t, err)
	require.Equal(t, want.Rows(), got.Rows())
	require.Equal(t, want.Cols(), got.Cols())
	for i := 0; i < want.Rows(); i++ {
		assert.Equal(t, want.Row(i), got.Row(i))
	}
}

func TestSaveBundleStimulusSharesDeviceName(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	export := &model.Export{Experiments: []model.Experiment{{
		Name: "exp",
		Cells: []model.Cell{{
			Type: "RGC\\ON-alpha",
			EpochGroups: []model.EpochGroup{{
				EpochBlocks: []model.EpochBlock{{
					ProtocolName: "LedPulse",
					Epochs: []model.Epoch{{
						StableID: "epoch-1",
						Responses: []model.Channel{
							{Device: "Amp1", Units: "pA", SampleRate: 10000, Samples: []float64{1, 2, 3}},
						},
						Stimuli: []model.Channel{
							{Device: "Amp1", Units: "V", SampleRate: 10000, Samples: []float64{4, 5, 6}},
						},
					}},
				}},
			}},
		}},
	}}}

	tr, err := New(export)
	require.NoError(t, err)

	n, err := tr.SaveBundle(ctx, bs, "colliding.bundle")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "response and stimulus bundled separately")

	blob, err := bs.Open(ctx, "colliding.bundle")
	require.NoError(t, err)
	defer blob.Close()

	br, err := trace.OpenBundle(ctx, blob, codec.Default)
	require.NoError(t, err)
	defer br.Close()

	resp, err := br.Read(ctx, model.SignalRef{File: "colliding.bundle", Path: "/responses/Amp1/epoch-1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, resp.Samples)
	assert.Equal(t, "pA", resp.Units)

	stim, err := br.Read(ctx, model.SignalRef{File: "colliding.bundle", Path: "/stimuli/Amp1/epoch-1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, stim.Samples)
	assert.Equal(t, "V", stim.Units)
}

func TestBuildInvalidSplitterViaFacade(t *testing.T) {
	tr := newTestTree(t)
	err := tr.Build(context.Background(), split.Splitter{})
	require.Error(t, err)
	assert.Nil(t, tr.Root())
}

func TestWalkLeafCount(t *testing.T) {
	tr := newTestTree(t)
	require.NoError(t, tr.Build(context.Background(), split.ByPath("cellType"), split.ByPath("protocolName")))

	leaves := 0
	tr.Root().Walk(func(n *tree.Node) {
		if n.IsLeaf() {
			leaves++
		}
	})
	assert.Equal(t, 4, leaves)
}
