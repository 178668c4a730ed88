package rowfilter

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// DecodeRequest identifies the column chunk to decode.
type DecodeRequest struct {
	RowGroup int
	Column   Column
	Chunk    parquet.ColumnChunk
	NumRows  int64
	// When true, the decoder may use the offset index of the column chunk to
	// skip pages holding no selected rows.
	PageIndex bool
}

// Decoder is the interface implemented by the codec adapters that materialize
// column chunks into arrow arrays.
//
// DecodeColumn must return an array with one entry for each selected row, in
// row order. The rows selection has one flag for each row of the row group.
type Decoder interface {
	DecodeColumn(ctx context.Context, req DecodeRequest, rows Selection) (arrow.Array, error)
}

// PageDecoder is the default Decoder, it reads the pages of column chunks and
// appends the values of selected rows to arrow builders.
type PageDecoder struct {
	Allocator memory.Allocator
	// Number of values read from pages at once.
	BufferSize int
}

func (d *PageDecoder) DecodeColumn(ctx context.Context, req DecodeRequest, rows Selection) (arrow.Array, error) {
	if int64(len(rows)) != req.NumRows {
		return nil, fmt.Errorf("selection of %d rows for a row group of %d rows", len(rows), req.NumRows)
	}

	mem := d.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	bufferSize := d.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultValueBufferSize
	}

	dataType, err := req.Column.ArrowType()
	if err != nil {
		return nil, err
	}
	builder := array.NewBuilder(mem, dataType)
	defer builder.Release()

	count := rows.Count()
	builder.Reserve(count)
	appendValue := appender(req.Column, builder)

	var pageStarts []int64
	if req.PageIndex {
		pageStarts = firstRowIndexes(req.Chunk)
	}

	pages := req.Chunk.Pages()
	defer pages.Close()

	buffer := make([]parquet.Value, bufferSize)
	numRows := req.NumRows
	row := int64(0)

	for builder.Len() < count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if pageStarts != nil {
			next := nextSelected(rows, row)
			p := sort.Search(len(pageStarts), func(i int) bool { return pageStarts[i] > next }) - 1
			if p >= 0 && pageStarts[p] > row {
				if err := pages.SeekToRow(pageStarts[p]); err != nil {
					return nil, fmt.Errorf("seeking to row %d: %w", pageStarts[p], err)
				}
				row = pageStarts[p]
			}
		}

		page, err := pages.ReadPage()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("column chunk ended at row %d of %d: %w", row, numRows, io.ErrUnexpectedEOF)
			}
			return nil, err
		}

		end, err := readPage(page, row, rows, buffer, appendValue)
		parquet.Release(page)
		if err != nil {
			return nil, err
		}
		row = end
	}

	return builder.NewArray(), nil
}

// readPage appends the selected values of page, which starts at row, and
// returns the row following the last row of the page.
func readPage(page parquet.Page, row int64, rows Selection, buffer []parquet.Value, appendValue func(parquet.Value) error) (int64, error) {
	end := row + page.NumRows()
	if end > int64(len(rows)) {
		return row, fmt.Errorf("page of %d rows at row %d overflows the row group of %d rows", page.NumRows(), row, len(rows))
	}
	if nextSelected(rows, row) >= end {
		return end, nil
	}

	values := page.Values()
	for row < end {
		n, err := values.ReadValues(buffer)
		for _, v := range buffer[:n] {
			if row == end {
				return row, fmt.Errorf("page holds more values than its %d rows", page.NumRows())
			}
			if rows[row] {
				if err := appendValue(v); err != nil {
					return row, err
				}
			}
			row++
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return row, err
		}
		if n == 0 {
			return row, fmt.Errorf("reading values at row %d: %w", row, io.ErrNoProgress)
		}
	}

	if row != end {
		return row, fmt.Errorf("page of %d rows holds %d values: %w", page.NumRows(), page.NumRows()-(end-row), io.ErrUnexpectedEOF)
	}
	return end, nil
}

func nextSelected(rows Selection, row int64) int64 {
	for row < int64(len(rows)) && !rows[row] {
		row++
	}
	return row
}

func firstRowIndexes(chunk parquet.ColumnChunk) []int64 {
	index, err := chunk.OffsetIndex()
	if err != nil || index == nil || index.NumPages() == 0 {
		return nil
	}
	starts := make([]int64, index.NumPages())
	for i := range starts {
		starts[i] = index.FirstRowIndex(i)
	}
	return starts
}

func appender(column Column, builder array.Builder) func(parquet.Value) error {
	appendValue := valueAppender(column, builder)
	return func(v parquet.Value) error {
		if v.IsNull() {
			builder.AppendNull()
			return nil
		}
		return appendValue(v)
	}
}

func valueAppender(column Column, builder array.Builder) func(parquet.Value) error {
	switch b := builder.(type) {
	case *array.BooleanBuilder:
		return func(v parquet.Value) error { b.Append(v.Boolean()); return nil }
	case *array.Int32Builder:
		return func(v parquet.Value) error { b.Append(v.Int32()); return nil }
	case *array.Date32Builder:
		return func(v parquet.Value) error { b.Append(arrow.Date32(v.Int32())); return nil }
	case *array.Int64Builder:
		return func(v parquet.Value) error { b.Append(v.Int64()); return nil }
	case *array.Uint32Builder:
		return func(v parquet.Value) error { b.Append(uint32(v.Int32())); return nil }
	case *array.Uint64Builder:
		return func(v parquet.Value) error { b.Append(uint64(v.Int64())); return nil }
	case *array.TimestampBuilder:
		return func(v parquet.Value) error { b.Append(arrow.Timestamp(v.Int64())); return nil }
	case *array.Float32Builder:
		return func(v parquet.Value) error { b.Append(v.Float()); return nil }
	case *array.Float64Builder:
		return func(v parquet.Value) error { b.Append(v.Double()); return nil }
	case *array.BinaryBuilder:
		return func(v parquet.Value) error { b.Append(v.ByteArray()); return nil }
	case *array.FixedSizeBinaryBuilder:
		return func(v parquet.Value) error { b.Append(v.ByteArray()); return nil }
	case *array.StringBuilder:
		if column.Type == UUID {
			return func(v parquet.Value) error {
				id, err := uuid.FromBytes(v.ByteArray())
				if err != nil {
					return fmt.Errorf("invalid uuid value: %w", err)
				}
				b.Append(id.String())
				return nil
			}
		}
		return func(v parquet.Value) error { b.Append(string(v.ByteArray())); return nil }
	default:
		return func(parquet.Value) error {
			return fmt.Errorf("column %q: no builder for %s: %w", column.Name, builder.Type(), ErrUnsupportedType)
		}
	}
}

var _ Decoder = (*PageDecoder)(nil)
