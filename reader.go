package rowfilter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ErrClosed is returned when reading from a closed reader.
var ErrClosed = errors.New("reader closed")

// Stats carries counters of the work done by a reader.
type Stats struct {
	RowGroups         int64
	RowGroupsPruned   int64
	RowGroupsFiltered int64
	PagesPruned       int64
	RowsFiltered      int64
	RowsEmitted       int64
	ColumnsDecoded    int64
	Batches           int64
}

// Reader produces the rows of a file which satisfy a row filter, as arrow
// records holding the columns of the output projection.
//
// Row groups are processed one at a time: the row group is first checked
// against statistics and the page index, then the predicates are evaluated on
// the columns they need for the rows still pending, and the remaining output
// columns are decoded only for the rows that passed all predicates.
//
// Readers are not safe for concurrent use.
type Reader struct {
	file      *File
	config    ReaderConfig
	output    Mask
	schema    *arrow.Schema
	filter    *RowFilter
	pruner    pruner
	pageIndex bool

	rowGroup int
	pending  []arrow.Record
	stats    Stats
	err      error
}

// NewReader constructs a reader of the rows of file. The options configure the
// output projection, the row filter and how the file is read.
func NewReader(file *File, options ...ReaderOption) (*Reader, error) {
	config, err := NewReaderConfig(options...)
	if err != nil {
		return nil, err
	}

	output := projectable(file.schema)
	if config.Projection != nil {
		output = *config.Projection
		for _, position := range output.Positions() {
			if position >= file.schema.NumColumns() {
				return nil, &ProjectionError{Position: position, NumColumns: file.schema.NumColumns(), Reason: "is out of range"}
			}
			if err := checkProjectable(file.schema, position); err != nil {
				return nil, err
			}
		}
	}

	schema, err := file.schema.ArrowSchema(output)
	if err != nil {
		return nil, err
	}

	filter, err := NewRowFilter(file.schema, config.Predicates...)
	if err != nil {
		return nil, err
	}

	pageIndex := config.PageIndex && file.config.PageIndex
	r := &Reader{
		file:      file,
		config:    *config,
		output:    output,
		schema:    schema,
		filter:    filter,
		pageIndex: pageIndex,
		pruner: pruner{
			file:       file,
			predicates: config.Predicates,
			pageIndex:  pageIndex,
			bloom:      config.BloomFilters && file.config.BloomFilters,
		},
	}
	return r, nil
}

// Schema returns the arrow schema of records produced by the reader.
func (r *Reader) Schema() *arrow.Schema { return r.schema }

// Stats returns the counters of the reader.
func (r *Reader) Stats() Stats { return r.stats }

// Read returns the next record. The caller owns the record and must release
// it. After the last record, Read returns io.EOF.
//
// Errors are not recoverable, once Read returned an error all subsequent calls
// return the same error.
func (r *Reader) Read(ctx context.Context) (arrow.Record, error) {
	if r.err != nil {
		return nil, r.err
	}

	for len(r.pending) == 0 {
		if r.rowGroup >= r.file.NumRowGroups() {
			return nil, io.EOF
		}
		index := r.rowGroup
		r.rowGroup++

		batches, err := r.readRowGroup(ctx, index)
		if err != nil {
			r.err = err
			return nil, err
		}
		r.pending = batches
	}

	record := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]

	r.stats.Batches++
	r.stats.RowsEmitted += record.NumRows()
	r.config.Metrics.batch(record.NumRows())
	return record, nil
}

// Batches returns an iterator over the records of r. Iteration stops after the
// first error. Records yielded by the iterator must be released by the caller.
func (r *Reader) Batches(ctx context.Context) iter.Seq2[arrow.Record, error] {
	return func(yield func(arrow.Record, error) bool) {
		for {
			record, err := r.Read(ctx)
			if err != nil {
				if err != io.EOF {
					yield(nil, err)
				}
				return
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}

// Close releases the records buffered by the reader. It does not close the
// file.
func (r *Reader) Close() error {
	for _, record := range r.pending {
		record.Release()
	}
	r.pending = nil
	if r.err == nil {
		r.err = ErrClosed
	}
	return nil
}

func (r *Reader) metrics() *Metrics { return r.config.Metrics }

func (r *Reader) readRowGroup(ctx context.Context, index int) ([]arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := r.config.Logger.With().Int("row_group", index).Logger()

	rowGroup := r.file.file.RowGroups()[index]
	r.stats.RowGroups++

	pruned, err := r.pruner.prune(index, rowGroup)
	if err != nil {
		return nil, err
	}
	r.stats.PagesPruned += int64(pruned.pagesPruned)
	r.metrics().pagesPruned(pruned.pagesPruned)

	if pruned.rows == nil {
		logger.Debug().Str("reason", pruned.reason).Int("pages_pruned", pruned.pagesPruned).Msg("row group pruned")
		r.stats.RowGroupsPruned++
		r.metrics().rowGroup(pruned.reason)
		return nil, nil
	}
	if pruned.pagesPruned > 0 {
		logger.Debug().Int("pages_pruned", pruned.pagesPruned).Int("candidates", pruned.rows.Count()).Msg("pages pruned")
	}

	g := newRowGroupReader(r, index, rowGroup)
	defer g.release()

	rows, err := r.filter.apply(ctx, g, pruned.rows)
	if err != nil {
		return nil, err
	}

	numRows := rows.Count()
	if numRows == 0 {
		logger.Debug().Msg("row group filtered")
		r.stats.RowGroupsFiltered++
		r.metrics().rowGroup(resultFiltered)
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := g.batch(ctx, r.schema, r.output, rows)
	if err != nil {
		return nil, err
	}

	logger.Debug().Int("rows", numRows).Int64("columns", record.NumCols()).Msg("row group read")
	r.metrics().rowGroup(resultEmitted)
	return r.split(record), nil
}

// split divides a record into batches of at most BatchSize rows.
func (r *Reader) split(record arrow.Record) []arrow.Record {
	size := int64(r.config.BatchSize)
	numRows := record.NumRows()
	if size == 0 || numRows <= size {
		return []arrow.Record{record}
	}
	defer record.Release()

	batches := make([]arrow.Record, 0, (numRows+size-1)/size)
	for i := int64(0); i < numRows; i += size {
		batches = append(batches, record.NewSlice(i, min(i+size, numRows)))
	}
	return batches
}

// ReadAll reads all remaining records of r into a single record. The caller
// must release the returned record.
func (r *Reader) ReadAll(ctx context.Context) (arrow.Record, error) {
	var records []arrow.Record
	defer func() {
		for _, record := range records {
			record.Release()
		}
	}()

	for record, err := range r.Batches(ctx) {
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		columns := emptyColumns(r)
		defer func() {
			for _, c := range columns {
				c.Release()
			}
		}()
		return array.NewRecord(r.schema, columns, 0), nil
	}

	table := array.NewTableFromRecords(r.schema, records)
	defer table.Release()

	return concatRecords(r, table)
}

func emptyColumns(r *Reader) []arrow.Array {
	columns := make([]arrow.Array, len(r.schema.Fields()))
	for i, field := range r.schema.Fields() {
		columns[i] = array.MakeArrayOfNull(r.config.Allocator, field.Type, 0)
	}
	return columns
}

func concatRecords(r *Reader, table arrow.Table) (arrow.Record, error) {
	columns := make([]arrow.Array, table.NumCols())
	defer func() {
		for _, c := range columns {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range columns {
		chunks := table.Column(i).Data().Chunks()
		c, err := array.Concatenate(chunks, r.config.Allocator)
		if err != nil {
			return nil, fmt.Errorf("concatenating column %s: %w", table.Schema().Field(i).Name, err)
		}
		columns[i] = c
	}
	return array.NewRecord(r.schema, columns, table.NumRows()), nil
}
