package trace

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/store"
	"github.com/hupe1980/epictree/testutil"
)

func TestExtractResident(t *testing.T) {
	rng := testutil.NewRNG(4711)
	s := store.New(testutil.MakeExport(rng, testutil.DefaultExportSpec()))

	m, err := Extract(context.Background(), s.Records(), "Amp1", nil)
	require.NoError(t, err)

	assert.Equal(t, s.Len(), m.Rows())
	assert.Equal(t, 16, m.Cols())
	assert.Equal(t, "Amp1", m.Device())
	assert.Equal(t, model.SampleRate(10000), m.SampleRate())
	assert.Equal(t, "pA", m.Units())

	// Rows align positionally with the input records.
	for i, r := range s.Records() {
		assert.Equal(t, r.StableID(), m.StableID(i))
		ch, ok := r.Channel("Amp1")
		require.True(t, ok)
		assert.Equal(t, ch.Samples, m.Row(i))
	}
}

func TestExtractEmpty(t *testing.T) {
	m, err := Extract(context.Background(), nil, "Amp1", nil)
	require.NoError(t, err)
	assert.Zero(t, m.Rows())
}

func TestExtractMissingChannel(t *testing.T) {
	rng := testutil.NewRNG(4711)
	s := store.New(testutil.MakeExport(rng, testutil.DefaultExportSpec()))

	_, err := Extract(context.Background(), s.Records(), "NoSuchAmp", nil)
	var cnf *ChannelNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, "NoSuchAmp", cnf.Device)
}

func TestExtractLengthMismatch(t *testing.T) {
	rng := testutil.NewRNG(4711)
	s := store.New(testutil.MakeExport(rng, testutil.DefaultExportSpec()))

	// Give one epoch a shorter trace.
	bad := s.Record(3)
	s.CacheSamples(bad.Index(), "Amp1", rng.Samples(7), 10000, "pA")

	_, err := Extract(context.Background(), s.Records(), "Amp1", nil)
	var lm *LengthMismatchError
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, bad.StableID(), lm.StableID)
	assert.Equal(t, 16, lm.Expected)
	assert.Equal(t, 7, lm.Actual)
}

func TestExtractNoFetcher(t *testing.T) {
	rng := testutil.NewRNG(4711)
	spec := testutil.DefaultExportSpec()
	spec.Resident = false
	s := store.New(testutil.MakeExport(rng, spec))

	_, err := Extract(context.Background(), s.Records(), "Amp1", nil)
	require.ErrorIs(t, err, ErrNoFetcher)
}

func TestExtractLazyFetchAndCache(t *testing.T) {
	rng := testutil.NewRNG(4711)
	spec := testutil.DefaultExportSpec()
	spec.Resident = false
	s := store.New(testutil.MakeExport(rng, spec))
	ctx := context.Background()

	// Build the backing bundle with one payload per channel reference.
	bs := blobstore.NewMemoryStore()
	w, err := bs.Create(ctx, "synthetic.bundle")
	require.NoError(t, err)
	bw, err := NewBundleWriter(w, nil, CompressionZSTD)
	require.NoError(t, err)
	for _, r := range s.Records() {
		ch, ok := r.Channel("Amp1")
		require.True(t, ok)
		sig := Signal{Samples: rng.Samples(spec.SamplesPerEpoch), SampleRate: 10000, Units: "pA"}
		require.NoError(t, bw.Append(ch.Ref, sig))
	}
	require.NoError(t, bw.Close())

	var fetches atomic.Int64
	inner := NewBundleFetcher(bs, nil)
	counting := FetcherFunc(func(ctx context.Context, ref model.SignalRef) (Signal, error) {
		fetches.Add(1)
		return inner.Fetch(ctx, ref)
	})

	m, err := Extract(ctx, s.Records(), "Amp1", counting)
	require.NoError(t, err)
	assert.Equal(t, s.Len(), m.Rows())
	assert.Equal(t, int64(s.Len()), fetches.Load())

	// Fetched payloads are cached on the records: no refetch.
	m2, err := Extract(ctx, s.Records(), "Amp1", counting)
	require.NoError(t, err)
	assert.Equal(t, int64(s.Len()), fetches.Load())
	assert.Equal(t, m.Row(0), m2.Row(0))
}

func TestBundleFetcherUnknownBundle(t *testing.T) {
	f := NewBundleFetcher(blobstore.NewMemoryStore(), nil)
	_, err := f.Fetch(context.Background(), model.SignalRef{File: "nope", Path: "/x"})
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRateLimitedFetcher(t *testing.T) {
	inner := FetcherFunc(func(ctx context.Context, ref model.SignalRef) (Signal, error) {
		return Signal{Samples: []float64{1, 2, 3}}, nil
	})
	f := NewRateLimitedFetcher(inner, 1<<30, 1<<20)

	sig, err := f.Fetch(context.Background(), model.SignalRef{File: "b", Path: "/x"})
	require.NoError(t, err)
	assert.Len(t, sig.Samples, 3)
}
