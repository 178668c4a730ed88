package pio

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Cache is a Source which serves reads from byte ranges prefetched from an
// underlying source.
//
// Reads that are not fully contained in a prefetched range are forwarded to
// the underlying source. Cache values are safe for concurrent use.
type Cache struct {
	source      Source
	concurrency int

	mutex  sync.RWMutex
	blocks []block
	hits   int64
	misses int64
}

type block struct {
	off  int64
	data []byte
}

func (b *block) end() int64 { return b.off + int64(len(b.data)) }

// NewCache constructs a cache over source which issues at most concurrency
// reads in parallel when prefetching.
func NewCache(source Source, concurrency int) *Cache {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Cache{source: source, concurrency: concurrency}
}

func (c *Cache) Size() int64 { return c.source.Size() }

// Close releases the cached ranges and closes the underlying source.
func (c *Cache) Close() error {
	c.Release()
	return c.source.Close()
}

// Prefetch loads the given ranges of the source into memory. Adjacent and
// overlapping ranges are merged before being read.
//
// The reads are submitted to MultiReadAt in waves of at most the concurrency
// of the cache, the context is checked before each wave. A failed read is
// reported as a *PrefetchError.
func (c *Cache) Prefetch(ctx context.Context, ranges []Range) error {
	ranges = c.missing(coalesce(ranges, c.source.Size()))
	if len(ranges) == 0 {
		return nil
	}

	if f, ok := c.source.(interface{ Advise([]Range) }); ok {
		f.Advise(ranges)
	}

	ops := make([]Op, len(ranges))
	for i, r := range ranges {
		ops[i] = Op{Data: make([]byte, r.Len), Off: r.Off}
	}
	for wave := range slices.Chunk(ops, c.concurrency) {
		if err := ctx.Err(); err != nil {
			return err
		}
		MultiReadAt(c.source, wave)
	}

	blocks := make([]block, len(ops))
	for i, op := range ops {
		if op.Err != nil && (op.Err != io.EOF || int64(len(op.Data)) < ranges[i].Len) {
			return &PrefetchError{Range: ranges[i], Err: op.Err}
		}
		blocks[i] = block{off: op.Off, data: op.Data}
	}

	c.mutex.Lock()
	c.blocks = append(c.blocks, blocks...)
	slices.SortFunc(c.blocks, func(a, b block) int { return cmp.Compare(a.off, b.off) })
	c.mutex.Unlock()
	return nil
}

// PrefetchError is returned by Cache.Prefetch when the read of a range fails.
type PrefetchError struct {
	Range Range
	Err   error
}

func (e *PrefetchError) Error() string {
	return fmt.Sprintf("prefetching %d bytes at offset %d: %v", e.Range.Len, e.Range.Off, e.Err)
}

func (e *PrefetchError) Unwrap() error { return e.Err }

// Release drops all prefetched ranges.
func (c *Cache) Release() {
	c.mutex.Lock()
	c.blocks = nil
	c.mutex.Unlock()
}

// Stats returns the number of reads served from memory and forwarded to the
// underlying source.
func (c *Cache) Stats() (hits, misses int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) ReadAt(b []byte, off int64) (int, error) {
	c.mutex.Lock()
	if blk := c.lookup(off, int64(len(b))); blk != nil {
		n := copy(b, blk.data[off-blk.off:])
		c.hits++
		c.mutex.Unlock()
		return n, nil
	}
	c.misses++
	c.mutex.Unlock()
	return c.source.ReadAt(b, off)
}

func (c *Cache) lookup(off, n int64) *block {
	i, found := slices.BinarySearchFunc(c.blocks, off, func(b block, off int64) int {
		return cmp.Compare(b.off, off)
	})
	if !found {
		i--
	}
	if i < 0 || i >= len(c.blocks) {
		return nil
	}
	if blk := &c.blocks[i]; blk.off <= off && off+n <= blk.end() {
		return blk
	}
	return nil
}

func (c *Cache) missing(ranges []Range) []Range {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return slices.DeleteFunc(ranges, func(r Range) bool { return c.lookup(r.Off, r.Len) != nil })
}

func coalesce(ranges []Range, size int64) []Range {
	ranges = slices.Clone(ranges)
	for i := range ranges {
		ranges[i].Len = min(ranges[i].Len, size-ranges[i].Off)
	}
	ranges = slices.DeleteFunc(ranges, func(r Range) bool { return r.Off < 0 || r.Len <= 0 })
	slices.SortFunc(ranges, func(a, b Range) int { return cmp.Compare(a.Off, b.Off) })

	merged := ranges[:0]
	for _, r := range ranges {
		if n := len(merged); n > 0 && r.Off <= merged[n-1].End() {
			last := &merged[n-1]
			last.Len = max(last.End(), r.End()) - last.Off
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

var _ Source = (*Cache)(nil)
