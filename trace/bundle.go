package trace

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/epictree/blobstore"
	"github.com/hupe1980/epictree/codec"
	"github.com/hupe1980/epictree/model"
)

// Bundle file layout:
//
//	[header: magic uint32 | version uint32]
//	[trace block 0][trace block 1]...
//	[index: codec-encoded map of "file|path" -> indexEntry]
//	[footer: indexOffset uint64 | indexLength uint64 | magic uint32]
//
// Each trace block is a compressed sample payload (see compress.go).
const (
	// BundleMagic identifies trace bundle files (ASCII: "ETB0").
	BundleMagic = 0x45544230
	// BundleVersion is the current bundle format version.
	BundleVersion = 0x00010000

	bundleHeaderSize = 8
	bundleFooterSize = 20
)

var (
	// ErrInvalidMagic is returned when a bundle's magic number is wrong.
	ErrInvalidMagic = errors.New("trace: invalid bundle magic")
	// ErrInvalidVersion is returned for unsupported bundle versions.
	ErrInvalidVersion = errors.New("trace: unsupported bundle version")
)

// indexEntry locates one trace payload inside a bundle.
type indexEntry struct {
	Offset      int64       `json:"offset"`
	Length      int64       `json:"length"`
	SampleRate  float64     `json:"sample_rate"`
	Units       string      `json:"units"`
	Compression Compression `json:"compression"`
}

func refKey(ref model.SignalRef) string {
	return ref.File + "|" + ref.Path
}

// BundleWriter streams trace payloads into a blobstore.WritableBlob and
// finalizes the index and footer on Close.
type BundleWriter struct {
	w           blobstore.WritableBlob
	codec       codec.Codec
	compression Compression
	offset      int64
	index       map[string]indexEntry
	closed      bool
}

// NewBundleWriter starts a bundle on w. A nil cdc falls back to
// codec.Default.
func NewBundleWriter(w blobstore.WritableBlob, cdc codec.Codec, compression Compression) (*BundleWriter, error) {
	if cdc == nil {
		cdc = codec.Default
	}

	var header [bundleHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], BundleMagic)
	binary.LittleEndian.PutUint32(header[4:], BundleVersion)
	if _, err := w.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write bundle header: %w", err)
	}

	return &BundleWriter{
		w:           w,
		codec:       cdc,
		compression: compression,
		offset:      bundleHeaderSize,
		index:       make(map[string]indexEntry),
	}, nil
}

// Append adds one trace payload under the given reference. Appending a
// reference twice overwrites the index entry; the earlier block becomes
// dead space.
func (bw *BundleWriter) Append(ref model.SignalRef, sig Signal) error {
	if bw.closed {
		return errors.New("trace: bundle writer closed")
	}
	if ref.IsZero() {
		return errors.New("trace: cannot append payload with empty reference")
	}

	block, err := compressBlock(encodeSamples(sig.Samples), bw.compression)
	if err != nil {
		return fmt.Errorf("compress trace %s: %w", ref, err)
	}

	n, err := bw.w.Write(block)
	if err != nil {
		return fmt.Errorf("write trace %s: %w", ref, err)
	}

	bw.index[refKey(ref)] = indexEntry{
		Offset:      bw.offset,
		Length:      int64(n),
		SampleRate:  float64(sig.SampleRate),
		Units:       sig.Units,
		Compression: bw.compression,
	}
	bw.offset += int64(n)
	return nil
}

// Len returns the number of indexed payloads.
func (bw *BundleWriter) Len() int { return len(bw.index) }

// Close writes the index and footer, syncs, and closes the underlying
// blob.
func (bw *BundleWriter) Close() error {
	if bw.closed {
		return nil
	}
	bw.closed = true

	indexData, err := bw.codec.Marshal(bw.index)
	if err != nil {
		return fmt.Errorf("encode bundle index: %w", err)
	}
	if _, err := bw.w.Write(indexData); err != nil {
		return fmt.Errorf("write bundle index: %w", err)
	}

	var footer [bundleFooterSize]byte
	binary.LittleEndian.PutUint64(footer[0:], uint64(bw.offset))
	binary.LittleEndian.PutUint64(footer[8:], uint64(len(indexData)))
	binary.LittleEndian.PutUint32(footer[16:], BundleMagic)
	if _, err := bw.w.Write(footer[:]); err != nil {
		return fmt.Errorf("write bundle footer: %w", err)
	}

	if err := bw.w.Sync(); err != nil {
		return fmt.Errorf("sync bundle: %w", err)
	}
	return bw.w.Close()
}

// BundleReader reads trace payloads from a bundle blob by reference,
// range-reading only the blocks it is asked for.
type BundleReader struct {
	blob  blobstore.Blob
	index map[string]indexEntry
}

// OpenBundle validates the bundle header and footer and loads the index.
func OpenBundle(ctx context.Context, blob blobstore.Blob, cdc codec.Codec) (*BundleReader, error) {
	if cdc == nil {
		cdc = codec.Default
	}

	size := blob.Size()
	if size < bundleHeaderSize+bundleFooterSize {
		return nil, fmt.Errorf("trace: bundle too small (%d bytes)", size)
	}

	var header [bundleHeaderSize]byte
	if _, err := blob.ReadAt(ctx, header[:], 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read bundle header: %w", err)
	}
	if binary.LittleEndian.Uint32(header[0:]) != BundleMagic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(header[4:]) != BundleVersion {
		return nil, ErrInvalidVersion
	}

	var footer [bundleFooterSize]byte
	if _, err := blob.ReadAt(ctx, footer[:], size-bundleFooterSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read bundle footer: %w", err)
	}
	if binary.LittleEndian.Uint32(footer[16:]) != BundleMagic {
		return nil, ErrInvalidMagic
	}

	indexOff := int64(binary.LittleEndian.Uint64(footer[0:]))
	indexLen := int64(binary.LittleEndian.Uint64(footer[8:]))
	if indexOff < bundleHeaderSize || indexOff+indexLen > size-bundleFooterSize {
		return nil, fmt.Errorf("trace: bundle index out of bounds (off=%d len=%d size=%d)", indexOff, indexLen, size)
	}

	indexData := make([]byte, indexLen)
	if _, err := blob.ReadAt(ctx, indexData, indexOff); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read bundle index: %w", err)
	}

	index := make(map[string]indexEntry)
	if err := cdc.Unmarshal(indexData, &index); err != nil {
		return nil, fmt.Errorf("decode bundle index: %w", err)
	}

	return &BundleReader{blob: blob, index: index}, nil
}

// Contains reports whether the bundle indexes the given reference.
func (br *BundleReader) Contains(ref model.SignalRef) bool {
	_, ok := br.index[refKey(ref)]
	return ok
}

// Len returns the number of indexed payloads.
func (br *BundleReader) Len() int { return len(br.index) }

// Refs returns the references of all indexed payloads.
func (br *BundleReader) Refs() []model.SignalRef {
	refs := make([]model.SignalRef, 0, len(br.index))
	for key := range br.index {
		for i := 0; i < len(key); i++ {
			if key[i] == '|' {
				refs = append(refs, model.SignalRef{File: key[:i], Path: key[i+1:]})
				break
			}
		}
	}
	return refs
}

// Read loads and decompresses one trace payload.
func (br *BundleReader) Read(ctx context.Context, ref model.SignalRef) (Signal, error) {
	entry, ok := br.index[refKey(ref)]
	if !ok {
		return Signal{}, &NotFoundError{Ref: ref}
	}

	block := make([]byte, entry.Length)
	if _, err := br.blob.ReadAt(ctx, block, entry.Offset); err != nil && err != io.EOF {
		return Signal{}, fmt.Errorf("read trace %s: %w", ref, err)
	}

	raw, err := decompressBlock(block, entry.Compression)
	if err != nil {
		return Signal{}, fmt.Errorf("decompress trace %s: %w", ref, err)
	}

	samples, err := decodeSamples(raw)
	if err != nil {
		return Signal{}, fmt.Errorf("decode trace %s: %w", ref, err)
	}

	return Signal{
		Samples:    samples,
		SampleRate: model.SampleRate(entry.SampleRate),
		Units:      entry.Units,
	}, nil
}

// Close closes the underlying blob.
func (br *BundleReader) Close() error {
	return br.blob.Close()
}
