package pio

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrIO is matched by all errors that originate from reading a Source.
var ErrIO = errors.New("i/o error")

// Error is returned by sources when a read fails. io.EOF is never wrapped.
type Error struct {
	Op   string
	Name string
	Off  int64
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s at offset %d: %v", e.Op, e.Name, e.Off, e.Err)
}

func (e *Error) Is(target error) bool { return target == ErrIO }

func (e *Error) Unwrap() error { return e.Err }

// Source is the interface implemented by the byte sources that parquet files
// are read from.
type Source interface {
	io.ReaderAt
	io.Closer
	// Size returns the total number of bytes readable from the source.
	Size() int64
}

// Open opens the source identified by name.
//
// URLs with the http or https scheme are read using HTTP range requests.
// Names ending in .zst, .lz4, .br or .sz are decompressed into memory.
// Any other name is opened as a local file.
func Open(name string) (Source, error) {
	switch {
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return OpenURL(name)
	}
	for ext, codec := range codecs {
		if strings.HasSuffix(name, ext) {
			return openCompressed(name, codec)
		}
	}
	return OpenFile(name)
}

// Wrap returns a Source which reads from r and reports read failures as
// values of type *Error.
func Wrap(name string, r io.ReaderAt, size int64) Source {
	switch s := r.(type) {
	case *wrapped:
		if s.size == size {
			return s
		}
	case *File:
		if s.size == size {
			return s
		}
	case *Bytes:
		if s.Size() == size {
			return s
		}
	}
	return &wrapped{name: name, r: r, size: size}
}

type wrapped struct {
	name string
	r    io.ReaderAt
	size int64
}

func (w *wrapped) ReadAt(b []byte, off int64) (int, error) {
	n, err := w.r.ReadAt(b, off)
	return n, wrapError("read", w.name, off, err)
}

func (w *wrapped) Size() int64 { return w.size }

func (w *wrapped) Close() error {
	if c, ok := w.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (w *wrapped) MultiReadAt(ops []Op) {
	MultiReadAt(w.r, ops)
	for i := range ops {
		ops[i].Err = wrapError("read", w.name, ops[i].Off, ops[i].Err)
	}
}

func wrapError(op, name string, off int64, err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Name: name, Off: off, Err: err}
}

var (
	_ ReaderAt = (*wrapped)(nil)
	_ Source   = (*wrapped)(nil)
)
