package rowfilter

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// RowFilter is an ordered list of predicates combined by logical AND.
//
// Predicates are evaluated in order, each of them only sees the rows that
// passed the predicates before it, and evaluation stops as soon as no rows
// remain.
type RowFilter struct {
	predicates []Predicate
	schemas    []*arrow.Schema
	mask       Mask
}

// NewRowFilter constructs a row filter evaluating predicates against columns
// of the schema.
func NewRowFilter(schema *Schema, predicates ...Predicate) (*RowFilter, error) {
	f := &RowFilter{
		predicates: predicates,
		schemas:    make([]*arrow.Schema, len(predicates)),
	}
	for i, p := range predicates {
		mask := p.Mask()
		for _, position := range mask.Positions() {
			if position >= schema.NumColumns() {
				return nil, &ProjectionError{Position: position, NumColumns: schema.NumColumns(), Reason: fmt.Sprintf("is out of range in the mask of predicate %d", i)}
			}
			if err := checkProjectable(schema, position); err != nil {
				return nil, err
			}
		}
		s, err := schema.ArrowSchema(mask)
		if err != nil {
			return nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		f.schemas[i] = s
		f.mask = f.mask.Union(mask)
	}
	return f, nil
}

// Len returns the number of predicates.
func (f *RowFilter) Len() int { return len(f.predicates) }

// Mask returns the union of the masks of all predicates.
func (f *RowFilter) Mask() Mask { return f.mask }

// apply evaluates the predicates on the pending rows of a row group and returns
// the rows which satisfy all of them.
func (f *RowFilter) apply(ctx context.Context, g *rowGroupReader, pending Selection) (Selection, error) {
	for i, p := range f.predicates {
		count := pending.Count()
		if count == 0 {
			g.logger().Debug().Int("predicate", i).Msg("no rows remaining, skipping predicates")
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := g.batch(ctx, f.schemas[i], p.Mask(), pending)
		if err != nil {
			return nil, err
		}
		result, err := p.Evaluate(batch)
		batch.Release()
		if err != nil {
			return nil, fmt.Errorf("evaluating predicate %d on row group %d: %w", i, g.index, err)
		}
		if result == nil {
			return nil, &ArityError{RowGroup: g.index, Predicate: i, Want: count}
		}
		if result.Len() != count {
			got := result.Len()
			result.Release()
			return nil, &ArityError{RowGroup: g.index, Predicate: i, Want: count, Got: got}
		}

		pending = pending.Fold(selectionOf(result))
		result.Release()

		filtered := count - pending.Count()
		g.reader.stats.RowsFiltered += int64(filtered)
		g.reader.metrics().rowsFiltered(filtered)
	}
	return pending, nil
}

// rowGroupReader holds the columns of a row group decoded so far, so that each
// column is decoded at most once per row group.
type rowGroupReader struct {
	reader   *Reader
	index    int
	rowGroup parquet.RowGroup
	numRows  int64
	columns  map[int]decodedColumn
}

type decodedColumn struct {
	values arrow.Array
	// Rows of the row group that values were materialized for.
	rows Selection
}

func newRowGroupReader(r *Reader, index int, rowGroup parquet.RowGroup) *rowGroupReader {
	return &rowGroupReader{
		reader:   r,
		index:    index,
		rowGroup: rowGroup,
		numRows:  rowGroup.NumRows(),
		columns:  make(map[int]decodedColumn),
	}
}

func (g *rowGroupReader) logger() *zerolog.Logger { return &g.reader.config.Logger }

func (g *rowGroupReader) release() {
	for _, c := range g.columns {
		c.values.Release()
	}
	clear(g.columns)
	g.reader.file.release()
}

// batch returns a record holding the columns of mask for the given rows.
func (g *rowGroupReader) batch(ctx context.Context, schema *arrow.Schema, mask Mask, rows Selection) (arrow.Record, error) {
	positions := mask.Positions()
	if err := g.prefetch(ctx, positions); err != nil {
		return nil, err
	}

	columns := make([]arrow.Array, 0, len(positions))
	defer func() {
		for _, c := range columns {
			c.Release()
		}
	}()

	for _, position := range positions {
		values, err := g.column(ctx, position, rows)
		if err != nil {
			return nil, err
		}
		columns = append(columns, values)
	}
	return array.NewRecord(schema, columns, int64(rows.Count())), nil
}

func (g *rowGroupReader) prefetch(ctx context.Context, positions []int) error {
	missing := make([]int, 0, len(positions))
	for _, position := range positions {
		if _, ok := g.columns[position]; !ok {
			missing = append(missing, position)
		}
	}
	if err := g.reader.file.prefetch(ctx, g.index, missing); err != nil {
		return fmt.Errorf("prefetching columns %v of row group %d: %w", missing, g.index, err)
	}
	return nil
}

// column returns the values of the column at position for the given rows. The
// caller must release the returned array.
func (g *rowGroupReader) column(ctx context.Context, position int, rows Selection) (arrow.Array, error) {
	if c, ok := g.columns[position]; ok {
		return g.narrow(ctx, position, c, rows)
	}

	column := g.reader.file.schema.Column(position)
	values, err := g.reader.config.Decoder.DecodeColumn(ctx, DecodeRequest{
		RowGroup:  g.index,
		Column:    column,
		Chunk:     g.rowGroup.ColumnChunks()[position],
		NumRows:   g.numRows,
		PageIndex: g.reader.pageIndex,
	}, rows)
	if err != nil {
		return nil, g.decodeError(position, err)
	}
	if want := rows.Count(); values.Len() != want {
		got := values.Len()
		values.Release()
		return nil, g.decodeError(position, fmt.Errorf("decoded %d values for %d rows", got, want))
	}

	g.reader.stats.ColumnsDecoded++
	g.reader.metrics().columnDecoded()
	g.columns[position] = decodedColumn{values: values, rows: rows}
	values.Retain()
	return values, nil
}

func (g *rowGroupReader) narrow(ctx context.Context, position int, c decodedColumn, rows Selection) (arrow.Array, error) {
	keep := rows.Relative(c.rows)
	if keep.Count() == len(keep) {
		c.values.Retain()
		return c.values, nil
	}

	mem := g.reader.config.Allocator
	filter := keep.Boolean(mem)
	defer filter.Release()

	values, err := compute.FilterArray(compute.WithAllocator(ctx, mem), c.values, filter, *compute.DefaultFilterOptions())
	if err != nil {
		return nil, fmt.Errorf("narrowing column %d of row group %d: %w", position, g.index, err)
	}

	c.values.Release()
	g.columns[position] = decodedColumn{values: values, rows: rows}
	values.Retain()
	return values, nil
}

func (g *rowGroupReader) decodeError(position int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return decodeError(g.index, g.reader.file.schema.Column(position), err)
}
