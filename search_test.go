package rowfilter

import (
	"fmt"
	"math"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func makeColumnIndex(pages [][]int32) parquet.ColumnIndex {
	indexer := parquet.Int32Type.NewColumnIndexer(0)

	for _, values := range pages {
		min, max := values[0], values[0]
		for _, v := range values[1:] {
			switch {
			case v < min:
				min = v
			case v > max:
				max = v
			}
		}
		indexer.IndexPage(int64(len(values)), 0, parquet.ValueOf(min), parquet.ValueOf(max))
	}

	formatIndex := indexer.ColumnIndex()
	return parquet.NewColumnIndex(parquet.Int32, &formatIndex)
}

func TestSearchPagesAscending(t *testing.T) {
	testSearchPages(t, [][]int32{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{9, 10, 10, 10},
		{10, 22, 23, 24, 25},
		{30},
		{31},
		{32},
		{42, 43, 44, 45, 46, 47, 48, 49},
	})
}

func TestSearchPagesUnordered(t *testing.T) {
	testSearchPages(t, [][]int32{
		{10, 10, 10, 10},
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{21, 22, 23, 24, 25},
		{19, 18, 17, 16, 15, 14, 13, 12, 11},
		{42, 43, 44, 45, 46, 47, 48, 49},
	})
}

func testSearchPages(t *testing.T, pages [][]int32) {
	index := makeColumnIndex(pages)
	cmp := parquet.CompareNullsLast(parquet.Int32Type.Compare)

	for i, values := range pages {
		t.Run(fmt.Sprintf("page#%02d", i), func(t *testing.T) {
			for _, value := range values {
				first, last := searchPages(index, parquet.ValueOf(value), cmp)
				if i < first || i >= last {
					t.Errorf("searching for value %d: page %d is outside of [%d,%d)", value, i, first, last)
				}
				// Pages outside of the range must not hold the value.
				for j, other := range pages {
					if j >= first && j < last {
						continue
					}
					for _, v := range other {
						if v == value {
							t.Errorf("searching for value %d: page %d holds the value but is outside of [%d,%d)", value, j, first, last)
						}
					}
				}
			}
		})
	}

	for _, value := range []int32{math.MinInt32, math.MaxInt32} {
		if first, last := searchPages(index, parquet.ValueOf(value), cmp); first != last {
			t.Errorf("search for non-existing value %d: got [%d,%d)", value, first, last)
		}
	}
}
