package pio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type codec func(io.Reader) (io.ReadCloser, error)

var codecs = map[string]codec{
	".zst": func(r io.Reader) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	},
	".lz4": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	},
	".br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	".sz": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(snappy.NewReader(r)), nil
	},
}

func openCompressed(path string, decompress codec) (*Bytes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapError("decompress", path, 0, err)
	}
	return NewBytes(path, data), nil
}

// Bytes is a Source backed by an in-memory buffer.
type Bytes struct {
	name   string
	reader *bytes.Reader
}

// NewBytes returns a Source reading from data.
func NewBytes(name string, data []byte) *Bytes {
	return &Bytes{name: name, reader: bytes.NewReader(data)}
}

func (b *Bytes) Name() string { return b.name }

func (b *Bytes) Size() int64 { return b.reader.Size() }

func (b *Bytes) Close() error { return nil }

func (b *Bytes) ReadAt(p []byte, off int64) (int, error) {
	n, err := b.reader.ReadAt(p, off)
	return n, wrapError("read", b.name, off, err)
}

// MultiReadAt satisfies the ReaderAt interface.
func (b *Bytes) MultiReadAt(ops []Op) { byteMultiReadAt(b.reader, ops) }

var (
	_ ReaderAt = (*Bytes)(nil)
	_ Source   = (*Bytes)(nil)
)
