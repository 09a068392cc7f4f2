package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/testutil"
)

func writeTestBundle(t *testing.T, bs blobstore.BlobStore, name string, compression Compression, signals map[model.SignalRef]Signal) {
	t.Helper()
	ctx := context.Background()

	w, err := bs.Create(ctx, name)
	require.NoError(t, err)

	bw, err := NewBundleWriter(w, nil, compression)
	require.NoError(t, err)
	for ref, sig := range signals {
		require.NoError(t, bw.Append(ref, sig))
	}
	require.NoError(t, bw.Close())
}

func TestBundleRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		rng := testutil.NewRNG(4711)
		bs := blobstore.NewMemoryStore()
		ctx := context.Background()

		signals := map[model.SignalRef]Signal{
			{File: "b", Path: "/responses/Amp1/e1"}: {Samples: rng.Samples(512), SampleRate: 10000, Units: "pA"},
			{File: "b", Path: "/responses/Amp1/e2"}: {Samples: rng.Samples(512), SampleRate: 10000, Units: "pA"},
			{File: "b", Path: "/stimuli/LED/e1"}:    {Samples: rng.Samples(64), SampleRate: 1000, Units: "V"},
		}
		writeTestBundle(t, bs, "b", compression, signals)

		blob, err := bs.Open(ctx, "b")
		require.NoError(t, err)
		br, err := OpenBundle(ctx, blob, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, br.Len())

		for ref, want := range signals {
			require.True(t, br.Contains(ref))
			got, err := br.Read(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, want.Samples, got.Samples, "compression=%d ref=%s", compression, ref)
			assert.Equal(t, want.SampleRate, got.SampleRate)
			assert.Equal(t, want.Units, got.Units)
		}
		require.NoError(t, br.Close())
	}
}

func TestBundleReadUnknownRef(t *testing.T) {
	bs := blobstore.NewMemoryStore()
	ctx := context.Background()
	writeTestBundle(t, bs, "b", CompressionZSTD, map[model.SignalRef]Signal{
		{File: "b", Path: "/responses/Amp1/e1"}: {Samples: []float64{1, 2, 3}},
	})

	blob, err := bs.Open(ctx, "b")
	require.NoError(t, err)
	br, err := OpenBundle(ctx, blob, nil)
	require.NoError(t, err)

	_, err = br.Read(ctx, model.SignalRef{File: "b", Path: "/responses/Amp1/nope"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestOpenBundleRejectsGarbage(t *testing.T) {
	bs := blobstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, bs.Put(ctx, "junk", make([]byte, 64)))

	blob, err := bs.Open(ctx, "junk")
	require.NoError(t, err)
	_, err = OpenBundle(ctx, blob, nil)
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestOpenBundleTooSmall(t *testing.T) {
	bs := blobstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, bs.Put(ctx, "tiny", []byte{1, 2, 3}))

	blob, err := bs.Open(ctx, "tiny")
	require.NoError(t, err)
	_, err = OpenBundle(ctx, blob, nil)
	require.Error(t, err)
}

func TestCompressBlockRoundTrip(t *testing.T) {
	rng := testutil.NewRNG(1)
	// Repetitive data compresses; random data falls back to stored.
	repetitive := make([]byte, 4096)
	random := encodeSamples(rng.Samples(512))

	for _, compression := range []Compression{CompressionLZ4, CompressionZSTD} {
		for _, data := range [][]byte{repetitive, random} {
			block, err := compressBlock(data, compression)
			require.NoError(t, err)
			out, err := decompressBlock(block, compression)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		}
	}
}
