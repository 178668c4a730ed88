package pio

import (
	"os"
)

// File is an adapter for *os.File which implements the Source interface.
type File struct {
	file *os.File
	size int64
}

// OpenFile opens the local file at path.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{file: f, size: s.Size()}, nil
}

func (f *File) Name() string { return f.file.Name() }

func (f *File) Size() int64 { return f.size }

func (f *File) Close() error { return f.file.Close() }

func (f *File) ReadAt(b []byte, off int64) (int, error) {
	n, err := f.file.ReadAt(b, off)
	return n, wrapError("pread", f.file.Name(), off, err)
}

// MultiReadAt satisfies the ReaderAt interface.
func (f *File) MultiReadAt(ops []Op) { multiReadAt(f, ops, DefaultConcurrency) }

// Advise hints to the operating system that the given byte ranges of the file
// are about to be read.
func (f *File) Advise(ranges []Range) {
	for _, r := range ranges {
		fadviseWillNeed(f.file, r.Off, r.Len)
	}
}

// Range is a contiguous region of a source.
type Range struct {
	Off int64
	Len int64
}

// End returns the offset of the first byte after the range.
func (r Range) End() int64 { return r.Off + r.Len }

var (
	_ ReaderAt = (*File)(nil)
	_ Source   = (*File)(nil)
)
