package pio

import "sync/atomic"

// Counting is a Source which records the number of reads and bytes read from
// the source it wraps.
type Counting struct {
	Source
	reads atomic.Int64
	bytes atomic.Int64
}

// NewCounting wraps source.
func NewCounting(source Source) *Counting { return &Counting{Source: source} }

func (c *Counting) ReadAt(b []byte, off int64) (int, error) {
	n, err := c.Source.ReadAt(b, off)
	c.reads.Add(1)
	c.bytes.Add(int64(n))
	return n, err
}

// Reads returns the number of calls to ReadAt.
func (c *Counting) Reads() int64 { return c.reads.Load() }

// Bytes returns the total number of bytes read.
func (c *Counting) Bytes() int64 { return c.bytes.Load() }

// Reset sets the counters back to zero.
func (c *Counting) Reset() {
	c.reads.Store(0)
	c.bytes.Store(0)
}
