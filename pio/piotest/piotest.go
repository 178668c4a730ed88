// Package piotest provides conformance tests for implementations of the
// pio.Source interface.
package piotest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/segmentio/parquet-rowfilter/pio"
)

// MakeSource is the signature of functions constructing the source under
// test, the source must expose the content of data.
type MakeSource func(data []byte) (pio.Source, error)

// TestSource runs the conformance tests against sources constructed by
// makeSource.
func TestSource(t *testing.T, makeSource MakeSource) {
	data := make([]byte, 1e6)
	prng := rand.New(rand.NewSource(0))
	prng.Read(data)

	source, err := makeSource(data)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	if size := source.Size(); size != int64(len(data)) {
		t.Fatalf("size mismatch: want=%d got=%d", len(data), size)
	}

	t.Run("ReadAt", func(t *testing.T) { testReadAt(t, source, data, prng) })
	t.Run("ReadAtEOF", func(t *testing.T) { testReadAtEOF(t, source, data) })
	t.Run("MultiReadAt", func(t *testing.T) { testMultiReadAt(t, source, data, prng) })
}

func testReadAt(t *testing.T, source pio.Source, data []byte, prng *rand.Rand) {
	buf := make([]byte, 8192)
	for i := 0; i < 100; i++ {
		b := buf[:prng.Intn(len(buf))]
		off := prng.Int63n(int64(len(data) - len(b)))

		n, err := source.ReadAt(b, off)
		if err != nil {
			t.Fatalf("reading %d bytes at offset %d: %v", len(b), off, err)
		}
		if !bytes.Equal(b[:n], data[off:off+int64(n)]) || n != len(b) {
			t.Fatalf("data mismatch reading %d bytes at offset %d (read=%d)", len(b), off, n)
		}
	}
}

func testReadAtEOF(t *testing.T, source pio.Source, data []byte) {
	b := make([]byte, 100)
	off := int64(len(data) - 10)

	n, err := source.ReadAt(b, off)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("reading past the end: want=%v got=%v", io.EOF, err)
	}
	if n != 10 || !bytes.Equal(b[:n], data[off:]) {
		t.Fatalf("reading past the end: want 10 bytes, got %d", n)
	}
}

func testMultiReadAt(t *testing.T, source pio.Source, data []byte, prng *rand.Rand) {
	const bufferSize = 8192
	ops := make([]pio.Op, 219)
	tmp := make([]byte, bufferSize)

	buffers := make([][]byte, len(ops))
	for i := range buffers {
		buffers[i] = make([]byte, bufferSize)
	}

	reader := bytes.NewReader(data)

	for _, n := range []int{1, 2, 7, 16, 64, len(ops)} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			for i := range ops[:n] {
				buffers[i] = buffers[i][:prng.Intn(bufferSize)]

				ops[i].Data = buffers[i]
				ops[i].Off = prng.Int63n(int64(len(data)))
				ops[i].Err = nil
			}

			pio.MultiReadAt(source, ops[:n])

			for i := range ops[:n] {
				op := &ops[i]
				offset := op.Off
				length := int64(len(buffers[i]))

				rn, err := reader.ReadAt(tmp[:length], offset)
				switch {
				case !errors.Is(op.Err, err):
					t.Fatalf("error mismatch for operation at index %d: want=%v got=%v (read=%d/%d offset=%d size=%d)", i, err, op.Err, len(op.Data), rn, offset, reader.Size())
				case rn != len(op.Data):
					t.Fatalf("length mismatch for operation at index %d: want=%d got=%d", i, rn, len(op.Data))
				case !bytes.Equal(tmp[:rn], op.Data):
					t.Fatalf("data mismatch for operation at index %d:\nwant = %q\ngot  = %q\n", i, tmp[:rn], op.Data)
				}
			}
		})
	}
}
