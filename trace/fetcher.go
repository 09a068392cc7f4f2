package trace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/codec"
	"github.com/hupe1980/epictree/model"
)

// Fetcher resolves a payload reference to a resident signal. Matrix
// extraction uses it to load non-resident channels on demand.
type Fetcher interface {
	Fetch(ctx context.Context, ref model.SignalRef) (Signal, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, ref model.SignalRef) (Signal, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref model.SignalRef) (Signal, error) {
	return f(ctx, ref)
}

// BundleFetcher resolves references against trace bundles in a blob
// store. ref.File names the bundle blob; ref.Path the payload inside it.
// Open bundle readers are kept for the fetcher's lifetime so repeated
// fetches from the same bundle reuse the loaded index.
type BundleFetcher struct {
	store blobstore.BlobStore
	codec codec.Codec

	mu      sync.Mutex
	readers map[string]*BundleReader
}

// NewBundleFetcher creates a fetcher over store. A nil cdc falls back to
// codec.Default.
func NewBundleFetcher(store blobstore.BlobStore, cdc codec.Codec) *BundleFetcher {
	if cdc == nil {
		cdc = codec.Default
	}
	return &BundleFetcher{
		store:   store,
		codec:   cdc,
		readers: make(map[string]*BundleReader),
	}
}

// Fetch loads the payload for ref from its bundle.
func (f *BundleFetcher) Fetch(ctx context.Context, ref model.SignalRef) (Signal, error) {
	if ref.IsZero() {
		return Signal{}, errors.New("trace: empty payload reference")
	}

	reader, err := f.reader(ctx, ref.File)
	if err != nil {
		return Signal{}, err
	}
	return reader.Read(ctx, ref)
}

func (f *BundleFetcher) reader(ctx context.Context, file string) (*BundleReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.readers[file]; ok {
		return r, nil
	}

	blob, err := f.store.Open(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("open bundle %q: %w", file, err)
	}

	r, err := OpenBundle(ctx, blob, f.codec)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	f.readers[file] = r
	return r, nil
}

// Close closes all open bundle readers.
func (f *BundleFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for file, r := range f.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.readers, file)
	}
	return firstErr
}

// RateLimitedFetcher wraps a Fetcher with a byte-rate limit, for bundles
// served from shared object storage.
type RateLimitedFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher limits inner to bytesPerSec with the given burst.
func NewRateLimitedFetcher(inner Fetcher, bytesPerSec float64, burst int) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
	}
}

// Fetch loads the payload, then waits out the token debt for its size.
// Sizes are not known up front, so the wait trails the fetch; sustained
// throughput still converges on the configured rate.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, ref model.SignalRef) (Signal, error) {
	sig, err := f.inner.Fetch(ctx, ref)
	if err != nil {
		return Signal{}, err
	}

	n := 8 * len(sig.Samples)
	if n > f.limiter.Burst() {
		n = f.limiter.Burst()
	}
	if n > 0 {
		if err := f.limiter.WaitN(ctx, n); err != nil {
			return Signal{}, err
		}
	}
	return sig, nil
}
