package mask

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/epictree/attr"
	"github.com/hupe1980/epictree/internal/fs"
	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/split"
	"github.com/hupe1980/epictree/store"
	"github.com/hupe1980/epictree/tree"
)

// makeStore builds a single-block store whose canonical order follows the
// given ids.
func makeStore(ids ...model.StableID) *store.Store {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	epochs := make([]model.Epoch, len(ids))
	for i, id := range ids {
		epochs[i] = model.Epoch{
			StableID:  id,
			StartTime: base.Add(time.Duration(i) * time.Minute),
		}
	}
	export := &model.Export{Experiments: []model.Experiment{{
		StableID: "exp", Name: "e",
		Cells: []model.Cell{{
			StableID: "cell",
			EpochGroups: []model.EpochGroup{{
				StableID: "group",
				EpochBlocks: []model.EpochBlock{{
					StableID: "block",
					Epochs:   epochs,
				}},
			}},
		}},
	}}}
	return store.New(export)
}

func tenIDs() []model.StableID {
	return []model.StableID{"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7", "e8", "e9"}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := makeStore(tenIDs()...)
	flags := []bool{false, false, true, false, false, true, false, true, false, false}
	for i, v := range flags {
		st.SetSelected(model.EpochIndex(i), v)
	}

	ms := NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "cell1.ugm")
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ms.Save(st, "cell1", path, now))

	// Scramble the live selection, then restore from disk.
	for i := 0; i < st.Len(); i++ {
		st.SetSelected(model.EpochIndex(i), true)
	}

	sum, err := ms.Load(st, path)
	require.NoError(t, err)
	assert.Equal(t, Summary{Matched: 10, Unmatched: 0, Excluded: 7}, sum)
	assert.Equal(t, flags, st.SelectionFlags())
}

func TestLoadSurvivesReordering(t *testing.T) {
	st := makeStore(tenIDs()...)
	for i := 0; i < st.Len(); i++ {
		st.SetSelected(model.EpochIndex(i), i == 2 || i == 5 || i == 7)
	}

	ms := NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "cell1.ugm")
	require.NoError(t, ms.Save(st, "cell1", path, time.Now()))

	// Re-exported dataset: same epochs, reversed canonical order.
	ids := tenIDs()
	reversed := make([]model.StableID, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	st2 := makeStore(reversed...)

	sum, err := ms.Load(st2, path)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Matched)

	selected := map[model.StableID]bool{}
	for _, r := range st2.Records() {
		if r.Selected() {
			selected[r.StableID()] = true
		}
	}
	assert.Equal(t, map[model.StableID]bool{"e2": true, "e5": true, "e7": true}, selected)
}

func TestMaskSurvivesRebuildWithDifferentSplitters(t *testing.T) {
	st := makeStore(tenIDs()...)
	root, err := tree.Build(st)
	require.NoError(t, err)

	flags := []bool{false, false, true, false, false, true, false, true, false, false}
	require.NoError(t, root.SetSelectedByMask(flags))

	ms := NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "cell1.ugm")
	require.NoError(t, ms.Save(st, "cell1", path, time.Now()))

	// Reset selection, rebuild with a splitter that reorders the leaves,
	// then reload the mask.
	for i := 0; i < st.Len(); i++ {
		st.SetSelected(model.EpochIndex(i), true)
	}
	root2, err := tree.Build(st, split.ByFunc("parity", func(r store.Record) attr.Value {
		return attr.Int(int64(r.Index() % 2))
	}))
	require.NoError(t, err)

	sum, err := ms.Load(st, path)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Matched)

	root2.RefreshSelectionCache()
	assert.Equal(t, 3, root2.SelectedCount())
	ids := map[model.StableID]bool{}
	for _, r := range root2.Epochs(true) {
		ids[r.StableID()] = true
	}
	assert.Equal(t, map[model.StableID]bool{"e2": true, "e5": true, "e7": true}, ids)
}

func TestLoadCountMismatch(t *testing.T) {
	st := makeStore(tenIDs()...)
	ms := NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "cell1.ugm")
	require.NoError(t, ms.Save(st, "cell1", path, time.Now()))

	smaller := makeStore(tenIDs()[:9]...)
	smaller.SetSelected(0, false)
	before := smaller.SelectionFlags()

	_, err := ms.Load(smaller, path)
	var cm *ErrCountMismatch
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, 9, cm.Expected)
	assert.Equal(t, 10, cm.Actual)
	assert.Equal(t, before, smaller.SelectionFlags(), "refused load leaves selection untouched")
}

func TestLoadRefusesAllEmptyIDs(t *testing.T) {
	st := makeStore(tenIDs()...)
	st.SetSelected(3, false)
	before := st.SelectionFlags()

	ms := NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "legacy.ugm")
	m := &Mask{
		FormatVersion:   FormatVersion,
		CreatedAt:       time.Now().Format(time.RFC3339),
		TotalEpochCount: st.Len(),
		Selected:        make([]bool, st.Len()),
		StableIDs:       make([]model.StableID, st.Len()),
	}
	require.NoError(t, ms.Write(m, path))

	_, err := ms.Load(st, path)
	var ni *ErrNoStableIDs
	require.ErrorAs(t, err, &ni)
	assert.Equal(t, before, st.SelectionFlags(), "refused load leaves selection untouched")
}

func TestLoadUnmatchedEpochsDefaultSelected(t *testing.T) {
	st := makeStore(tenIDs()...)
	ms := NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "cell1.ugm")

	// Deselect everything and save.
	for i := 0; i < st.Len(); i++ {
		st.SetSelected(model.EpochIndex(i), false)
	}
	require.NoError(t, ms.Save(st, "cell1", path, time.Now()))

	// Same count, but two epochs the mask has never seen.
	ids := tenIDs()
	ids[0] = "new-a"
	ids[1] = "new-b"
	st2 := makeStore(ids...)

	sum, err := ms.Load(st2, path)
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Matched)
	assert.Equal(t, 2, sum.Unmatched)
	assert.True(t, st2.Record(0).Selected(), "unknown epochs default to included")
	assert.True(t, st2.Record(1).Selected())
	assert.False(t, st2.Record(2).Selected())
}

func TestReadMissingFile(t *testing.T) {
	ms := NewStore(nil, nil)
	_, err := ms.Read(filepath.Join(t.TempDir(), "nope.ugm"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ugm")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	ms := NewStore(nil, nil)
	_, err := ms.Read(path)
	var mf *ErrMalformed
	require.ErrorAs(t, err, &mf)
}

func TestReadInconsistentLengths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ugm")
	body := `{"format_version":"1.1","created":"x","epoch_count":3,"selection_mask":[true,false],"epoch_h5_uuids":["a","b","c"]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	ms := NewStore(nil, nil)
	_, err := ms.Read(path)
	var mf *ErrMalformed
	require.ErrorAs(t, err, &mf)
}

func TestSaveDiskFull(t *testing.T) {
	st := makeStore(tenIDs()...)
	faulty := fs.NewFaultyFS(nil)
	faulty.SetLimit(0)
	ms := NewStore(faulty, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "cell1.ugm")
	err := ms.Save(st, "cell1", path, time.Now())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed save leaves no partial mask behind")
	_, statErr = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temp file is cleaned up")
}

func TestFilenameOrdering(t *testing.T) {
	t1 := time.Date(2024, 3, 15, 9, 59, 59, 0, time.UTC)
	t2 := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	f1 := Filename("cell1", t1)
	f2 := Filename("cell1", t2)
	assert.Equal(t, "cell1_20240315_095959.ugm", f1)
	assert.Less(t, f1, f2, "lexicographic order matches chronological order")
}

func TestFindLatest(t *testing.T) {
	st := makeStore(tenIDs()...)
	ms := NewStore(nil, nil)
	dir := t.TempDir()

	times := []time.Time{
		time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		require.NoError(t, ms.Save(st, "cell1", filepath.Join(dir, Filename("cell1", ts)), ts))
	}
	// A different basename must not match.
	require.NoError(t, ms.Save(st, "cell2", filepath.Join(dir, Filename("cell2", times[0])), times[0]))

	path, ok, err := ms.FindLatest(dir, "cell1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "cell1_20240315_110000.ugm"), path)
}

func TestFindLatestMissingDir(t *testing.T) {
	ms := NewStore(nil, nil)
	_, ok, err := ms.FindLatest(filepath.Join(t.TempDir(), "nope"), "cell1")
	require.NoError(t, err)
	assert.False(t, ok)
}
