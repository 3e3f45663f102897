package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// CompressedStore zstd-compresses blobs on write. Reads accept both
// compressed and plain blobs, so it can wrap a store with existing data.
type CompressedStore struct {
	next Store
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

var _ Store = (*CompressedStore)(nil)

// NewCompressedStore wraps next with zstd compression.
func NewCompressedStore(next Store) (*CompressedStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &CompressedStore{next: next, enc: enc, dec: dec}, nil
}

// GetFile reads and, when framed as zstd, decompresses the blob.
func (c *CompressedStore) GetFile(ctx context.Context, name string) ([]byte, error) {
	data, err := c.next.GetFile(ctx, name)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through store errors
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", name, err)
	}
	return out, nil
}

// WriteFile compresses data and writes it to the wrapped store.
func (c *CompressedStore) WriteFile(ctx context.Context, name string, data []byte) error {
	return c.next.WriteFile(ctx, name, c.enc.EncodeAll(data, nil)) //nolint:wrapcheck // pass through store errors
}

// Ping delegates to the wrapped store when it supports it.
func (c *CompressedStore) Ping(ctx context.Context) error {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx) //nolint:wrapcheck // pass through store errors
	}
	return nil
}
