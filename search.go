package rowfilter

import (
	"sort"

	"github.com/parquet-go/parquet-go"
)

// searchPages returns the range of pages [first, last) of a column chunk which
// may contain the given value. Pages outside of the range cannot contain the
// value.
//
// When the column index is in ascending order the min and max values of pages
// are both non-decreasing, so the pages ending before the value form a prefix
// and the pages starting after the value form a suffix, and both bounds are
// found by binary search. Pages of other column indexes are scanned linearly.
func searchPages(index parquet.ColumnIndex, value parquet.Value, cmp func(parquet.Value, parquet.Value) int) (first, last int) {
	n := index.NumPages()
	switch {
	case index.IsAscending() && !hasNullPages(index):
		first = sort.Search(n, func(i int) bool { return cmp(index.MaxValue(i), value) >= 0 })
		last = sort.Search(n, func(i int) bool { return cmp(index.MinValue(i), value) > 0 })
		return first, max(first, last)
	default:
		return linearSearch(index, value, cmp)
	}
}

func hasNullPages(index parquet.ColumnIndex) bool {
	for i := range index.NumPages() {
		if index.NullPage(i) {
			return true
		}
	}
	return false
}

func linearSearch(index parquet.ColumnIndex, value parquet.Value, cmp func(parquet.Value, parquet.Value) int) (first, last int) {
	n := index.NumPages()
	first, last = n, n

	for i := 0; i < n; i++ {
		if index.NullPage(i) {
			continue
		}
		min := index.MinValue(i)
		max := index.MaxValue(i)

		if cmp(min, value) <= 0 && cmp(value, max) <= 0 {
			if first == n {
				first = i
			}
			last = i + 1
		}
	}

	if first == n {
		return n, n
	}
	return first, last
}
