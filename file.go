package rowfilter

import (
	"context"
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/segmentio/parquet-rowfilter/pio"
)

// File represents a parquet file opened for filtered reads.
//
// Readers of a file share its read-ahead cache, a file opened with ReadAhead
// must not be read by concurrent readers.
type File struct {
	source pio.Source
	cache  *pio.Cache
	file   *parquet.File
	schema *Schema
	config FileConfig
}

// OpenFile opens a parquet file from the content between offsets 0 and size in
// r. When r implements io.Closer it is closed with the returned file, or
// before returning if opening fails.
func OpenFile(r io.ReaderAt, size int64, options ...FileOption) (*File, error) {
	return Open(pio.Wrap(sourceName(r), r, size), options...)
}

// Open opens a parquet file from source. The file takes ownership of the
// source, which is closed when the file is closed, or before returning if
// opening the file fails.
func Open(source pio.Source, options ...FileOption) (*File, error) {
	f, err := open(source, options)
	if err != nil {
		source.Close()
		return nil, err
	}
	return f, nil
}

func open(source pio.Source, options []FileOption) (*File, error) {
	config, err := NewFileConfig(options...)
	if err != nil {
		return nil, err
	}

	f := &File{source: source, config: *config}
	var r io.ReaderAt = source
	if config.ReadAhead > 0 {
		f.cache = pio.NewCache(source, config.ReadAhead)
		r = f.cache
	}

	f.file, err = parquet.OpenFile(r, source.Size(),
		parquet.SkipPageIndex(!config.PageIndex),
		parquet.SkipBloomFilters(!config.BloomFilters),
		parquet.ReadBufferSize(config.ReadBufferSize),
	)
	if err != nil {
		return nil, err
	}

	if f.schema, err = NewSchema(f.file.Schema()); err != nil {
		return nil, err
	}
	return f, nil
}

// Schema returns the schema descriptor of the file.
func (f *File) Schema() *Schema { return f.schema }

// NumRows returns the number of rows in the file.
func (f *File) NumRows() int64 { return f.file.NumRows() }

// NumRowGroups returns the number of row groups in the file.
func (f *File) NumRowGroups() int { return len(f.file.RowGroups()) }

// Parquet returns the underlying parquet file.
func (f *File) Parquet() *parquet.File { return f.file }

// Close closes the source of the file.
func (f *File) Close() error {
	if f.cache != nil {
		return f.cache.Close()
	}
	return f.source.Close()
}

func (f *File) columnChunk(rowGroup, column int) *format.ColumnChunk {
	return &f.file.Metadata().RowGroups[rowGroup].Columns[column]
}

func (f *File) hasPageIndex(rowGroup, column int) bool {
	c := f.columnChunk(rowGroup, column)
	return f.config.PageIndex && c.ColumnIndexLength > 0 && c.OffsetIndexLength > 0
}

func (f *File) nullCount(rowGroup, column int) int64 {
	return f.columnChunk(rowGroup, column).MetaData.Statistics.NullCount
}

// chunkRange returns the byte range of a column chunk, including its
// dictionary page.
func (f *File) chunkRange(rowGroup, column int) pio.Range {
	md := &f.columnChunk(rowGroup, column).MetaData
	off := md.DataPageOffset
	if md.DictionaryPageOffset > 0 && md.DictionaryPageOffset < off {
		off = md.DictionaryPageOffset
	}
	return pio.Range{Off: off, Len: md.TotalCompressedSize}
}

// prefetch loads the column chunks of a row group into the read-ahead cache,
// it is a no-op when read-ahead is disabled.
func (f *File) prefetch(ctx context.Context, rowGroup int, columns []int) error {
	if f.cache == nil || len(columns) == 0 {
		return nil
	}
	ranges := make([]pio.Range, len(columns))
	for i, column := range columns {
		ranges[i] = f.chunkRange(rowGroup, column)
	}
	return f.cache.Prefetch(ctx, ranges)
}

func (f *File) release() {
	if f.cache != nil {
		f.cache.Release()
	}
}

func sourceName(r io.ReaderAt) string {
	if named, ok := r.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "parquet file"
}
