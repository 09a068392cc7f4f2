package blobstore

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/epictree/internal/cache"
)

// CachingStore wraps a BlobStore and adds block-level read caching.
// Remote bundles are fetched range-by-range during lazy channel loading;
// the cache keeps warm blocks local so re-extracting a channel does not
// refetch from object storage.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a CachingStore. blockSize defaults to 64KB
// if <= 0, a reasonable unit for trace-sized range reads.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}
	return &CachingStore{inner: inner, cache: c, blockSize: blockSize}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{inner: b, cache: s.cache, name: name, blockSize: s.blockSize}, nil
}

// Create passes through; bundles are immutable once written, so writes
// are not cached.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Put writes through and invalidates stale blocks for the name.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob and its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List passes through.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Path == name })
}

type cachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Size() int64 { return b.inner.Size() }

func (b *cachingBlob) Close() error { return b.inner.Close() }

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(p)) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.block(ctx, blk)
		if err != nil {
			return total, err
		}

		blkStart := blk * b.blockSize
		from := max(blkStart, off)
		to := min(blkStart+b.blockSize, off+int64(len(p)))
		srcOff := from - blkStart
		if srcOff >= int64(len(data)) {
			break // past EOF on the last block
		}
		copySize := to - from
		if srcOff+copySize > int64(len(data)) {
			copySize = int64(len(data)) - srcOff
		}
		total += copy(p[from-off:], data[srcOff:srcOff+copySize])
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.Size() {
		return nil, io.EOF
	}
	if off+length > b.Size() {
		length = b.Size() - off
	}
	buf := make([]byte, length)
	n, err := b.ReadAt(ctx, buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(buf[:n])), nil
}

// fillCache fetches the missing blocks in [startBlock, endBlock] from the
// backend, coalescing contiguous runs into single reads and running the
// runs in parallel.
func (b *cachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type run struct{ start, count int64 }
	var missing []run

	cur := run{start: -1}
	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(cache.Key{Path: b.name, Block: uint64(blk)}); ok {
			if cur.start != -1 {
				missing = append(missing, cur)
				cur = run{start: -1}
			}
			continue
		}
		if cur.start == -1 {
			cur = run{start: blk, count: 1}
		} else {
			cur.count++
		}
	}
	if cur.start != -1 {
		missing = append(missing, cur)
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, r := range missing {
		g.Go(func() error {
			return b.fetchRun(gctx, r.start, r.count)
		})
	}
	return g.Wait()
}

func (b *cachingBlob) fetchRun(ctx context.Context, start, count int64) error {
	off := start * b.blockSize
	length := count * b.blockSize
	if off+length > b.inner.Size() {
		length = b.inner.Size() - off
	}
	if length <= 0 {
		return nil
	}

	buf := make([]byte, length)
	n, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	for i := int64(0); i < count; i++ {
		from := i * b.blockSize
		if from >= int64(len(buf)) {
			break
		}
		to := min(from+b.blockSize, int64(len(buf)))
		b.cache.Set(cache.Key{Path: b.name, Block: uint64(start + i)}, buf[from:to])
	}
	return nil
}

func (b *cachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	if data, ok := b.cache.Get(cache.Key{Path: b.name, Block: uint64(blk)}); ok {
		return data, nil
	}
	// Evicted between fill and read; fetch directly.
	if err := b.fetchRun(ctx, blk, 1); err != nil {
		return nil, err
	}
	if data, ok := b.cache.Get(cache.Key{Path: b.name, Block: uint64(blk)}); ok {
		return data, nil
	}
	// Cache refused the block (e.g. capacity smaller than one block);
	// fall back to an uncached read.
	off := blk * b.blockSize
	length := min(b.blockSize, b.inner.Size()-off)
	if length <= 0 {
		return nil, io.EOF
	}
	buf := make([]byte, length)
	n, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
