package rowfilter

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/parquet-go/parquet-go"
)

// pruneResult is the outcome of checking the statistics of a row group against
// the predicates of a row filter.
type pruneResult struct {
	// Candidate rows of the row group, nil when the row group is skipped.
	rows        Selection
	reason      string
	pagesPruned int
}

// pruner uses row group statistics, bloom filters and the page index to find
// the rows of a row group which may satisfy all predicates.
type pruner struct {
	file       *File
	predicates []Predicate
	pageIndex  bool
	bloom      bool
}

func (p *pruner) prune(index int, rowGroup parquet.RowGroup) (pruneResult, error) {
	numRows := rowGroup.NumRows()
	candidates := roaring.New()
	candidates.AddRange(0, uint64(numRows))
	pagesPruned := 0

	for _, predicate := range p.predicates {
		positions := predicate.Mask().Positions()

		if pr, ok := predicate.(Pruner); ok && p.pageIndex {
			for _, position := range positions {
				if p.skipRowGroup(pr, index, rowGroup, position) {
					return pruneResult{reason: resultPrunedStatistics}, nil
				}
			}
		}

		if bloom, ok := predicate.(BloomPruner); ok && p.bloom {
			for _, position := range positions {
				skip, err := p.skipBloomFilter(bloom, rowGroup, position)
				if err != nil {
					return pruneResult{}, decodeError(index, p.file.schema.Column(position), fmt.Errorf("checking bloom filter: %w", err))
				}
				if skip {
					return pruneResult{reason: resultPrunedBloomFilter}, nil
				}
			}
		}

		if pr, ok := predicate.(Pruner); ok && p.pageIndex {
			for _, position := range positions {
				if !p.file.hasPageIndex(index, position) {
					continue
				}
				n, err := p.prunePages(pr, candidates, index, rowGroup, position)
				if err != nil {
					return pruneResult{}, decodeError(index, p.file.schema.Column(position), err)
				}
				pagesPruned += n
			}
			if candidates.IsEmpty() {
				return pruneResult{reason: resultPrunedPageIndex, pagesPruned: pagesPruned}, nil
			}
		}
	}

	rows := make(Selection, numRows)
	it := candidates.Iterator()
	for it.HasNext() {
		rows[it.Next()] = true
	}
	return pruneResult{rows: rows, pagesPruned: pagesPruned}, nil
}

func (p *pruner) skipRowGroup(pr Pruner, index int, rowGroup parquet.RowGroup, position int) bool {
	chunk, ok := rowGroup.ColumnChunks()[position].(*parquet.FileColumnChunk)
	if !ok {
		return false
	}
	stats := Statistics{
		Column:    p.file.schema.Column(position),
		NullCount: p.file.nullCount(index, position),
		NumRows:   rowGroup.NumRows(),
	}
	stats.Min, stats.Max, stats.HasMinMax = chunk.Bounds()
	if stats.NumRows == 0 {
		return true
	}
	return pr.CanSkip(stats)
}

func (p *pruner) skipBloomFilter(bloom BloomPruner, rowGroup parquet.RowGroup, position int) (bool, error) {
	filter := rowGroup.ColumnChunks()[position].BloomFilter()
	if filter == nil {
		return false, nil
	}
	return bloom.CanSkipBloom(p.file.schema.Column(position), filter)
}

// prunePages removes the rows of pages which cannot satisfy the predicate from
// the candidates, and returns the number of pages removed.
func (p *pruner) prunePages(pr Pruner, candidates *roaring.Bitmap, index int, rowGroup parquet.RowGroup, position int) (int, error) {
	chunk := rowGroup.ColumnChunks()[position]

	columnIndex, err := chunk.ColumnIndex()
	if err != nil {
		return 0, fmt.Errorf("reading column index: %w", err)
	}
	offsetIndex, err := chunk.OffsetIndex()
	if err != nil {
		return 0, fmt.Errorf("reading offset index: %w", err)
	}
	numPages := columnIndex.NumPages()
	if numPages != offsetIndex.NumPages() {
		return 0, fmt.Errorf("column index has %d pages but offset index has %d", numPages, offsetIndex.NumPages())
	}

	column := p.file.schema.Column(position)
	numRows := rowGroup.NumRows()
	pageRows := func(i int) (int64, int64) {
		from, to := offsetIndex.FirstRowIndex(i), numRows
		if i+1 < numPages {
			to = offsetIndex.FirstRowIndex(i + 1)
		}
		return from, to
	}

	first, last := 0, numPages
	if c, ok := pr.(*comparison); ok && c.op == opEqual {
		first, last = searchPages(columnIndex, c.value, c.cmp)
	}

	pruned := 0
	for i := range numPages {
		from, to := pageRows(i)
		if from >= to {
			continue
		}
		skip := i < first || i >= last
		if !skip {
			stats := Statistics{
				Column:    column,
				NullCount: columnIndex.NullCount(i),
				NumRows:   to - from,
				NullPage:  columnIndex.NullPage(i),
			}
			if !stats.NullPage {
				stats.Min, stats.Max, stats.HasMinMax = columnIndex.MinValue(i), columnIndex.MaxValue(i), true
			}
			skip = pr.CanSkip(stats)
		}
		if skip && rangeIntersects(candidates, from, to) {
			candidates.RemoveRange(uint64(from), uint64(to))
			pruned++
		}
	}
	return pruned, nil
}

func rangeIntersects(b *roaring.Bitmap, from, to int64) bool {
	return b.Rank(uint32(to-1))-b.Rank(uint32(from))+boolToUint64(b.Contains(uint32(from))) > 0
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
