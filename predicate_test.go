package rowfilter_test

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	rowfilter "github.com/segmentio/parquet-rowfilter"
)

type nullableRow struct {
	ID    int64   `parquet:"id"`
	Value *int64  `parquet:"value,optional"`
	UTF8  *string `parquet:"utf8,optional"`
}

// nullableRows generates rows where value is null on multiples of 3, and utf8
// is null in the second half of the rows.
func nullableRows(n int) []nullableRow {
	rows := make([]nullableRow, n)
	for i := range rows {
		rows[i].ID = int64(i)
		if i%3 != 0 {
			v := int64(i)
			rows[i].Value = &v
		}
		if i < n/2 {
			s := fmt.Sprintf("s%04d", i)
			rows[i].UTF8 = &s
		}
	}
	return rows
}

func TestPredicatesOnNullableColumns(t *testing.T) {
	f := openFile(t, writeRows(t, nullableRows(3000), 1000))
	schema := f.Schema()

	tests := []struct {
		expr  string
		count int
	}{
		{expr: "value is null", count: 1000},
		{expr: "value is not null", count: 2000},
		{expr: "value != 1", count: 1999},
		{expr: "value < 10", count: 6},
		{expr: "utf8 is null", count: 1500},
		{expr: "utf8 >= 's1000'", count: 500},
		{expr: "utf8 = 's2000'", count: 0},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			p := mustPredicate(t, schema, test.expr)
			with, _ := readAll(t, f, rowfilter.Filter(p))
			without, _ := readAll(t, f, rowfilter.Filter(p), rowfilter.PageIndex(false))
			assertSameDump(t, without, with)

			if n := countLines(with); n != test.count {
				t.Errorf("want %d rows, got %d", test.count, n)
			}
		})
	}
}

func TestNullsAreMaterialized(t *testing.T) {
	f := openFile(t, writeRows(t, nullableRows(6), 6))
	schema := f.Schema()

	got, _ := readAll(t, f, rowfilter.Filter(mustPredicate(t, schema, "id >= 2")))
	want := strings.Join([]string{
		"id=2 value=2 utf8=s0002",
		"id=3 value=(null) utf8=(null)",
		"id=4 value=4 utf8=(null)",
		"id=5 value=5 utf8=(null)",
		"",
	}, "\n")
	assertSameDump(t, want, got)
}

func TestPredicateSeesPendingRowsOnly(t *testing.T) {
	f := openFile(t, fixture100k(t))
	schema := f.Schema()

	var seen []int64
	observe := rowfilter.Func(mustMask(t, schema, "int64"), func(batch arrow.Record) (*array.Boolean, error) {
		values := batch.Column(0).(*array.Int64)
		b := array.NewBooleanBuilder(memory.DefaultAllocator)
		defer b.Release()
		for i := range values.Len() {
			seen = append(seen, values.Value(i))
			b.Append(true)
		}
		return b.NewBooleanArray(), nil
	})

	_, stats := readAll(t, f, rowfilter.Filter(mustPredicate(t, schema, "utf8 = 'const'"), observe))
	if len(seen) != 10 {
		t.Fatalf("second predicate saw %d rows: %v", len(seen), seen)
	}
	for i, v := range seen {
		if v != int64(i*10000) {
			t.Errorf("row %d: want %d, got %d", i, i*10000, v)
		}
	}
	if stats.RowsEmitted != 10 {
		t.Errorf("want 10 rows, got %d", stats.RowsEmitted)
	}
}

func TestFuncPredicatePrune(t *testing.T) {
	f := openFile(t, fixture100k(t))
	schema := f.Schema()

	evaluated := 0
	p := rowfilter.Func(mustMask(t, schema, "int64"), func(batch arrow.Record) (*array.Boolean, error) {
		evaluated++
		b := array.NewBooleanBuilder(memory.DefaultAllocator)
		defer b.Release()
		for range batch.NumRows() {
			b.Append(true)
		}
		return b.NewBooleanArray(), nil
	}).WithPrune(func(stats rowfilter.Statistics) bool {
		// Skip ranges which hold no value below 10000.
		return stats.HasMinMax && stats.Min.Int64() >= 10000
	})

	_, stats := readAll(t, f, rowfilter.Filter(p))
	if evaluated != 1 || stats.RowsEmitted != 10000 {
		t.Errorf("want one evaluation of 10000 rows, got %d evaluations and %d rows", evaluated, stats.RowsEmitted)
	}
}

func TestComparisonConstants(t *testing.T) {
	schema := personSchema(t)

	if _, err := rowfilter.Equal(schema, "score", parquet.Int64Value(3)); err != nil {
		t.Errorf("integer constant for a float column: %v", err)
	}
	if _, err := rowfilter.Equal(schema, "address.zip", parquet.ByteArrayValue([]byte("3"))); err == nil {
		t.Error("string constant for an int32 column was accepted")
	}
	if _, err := rowfilter.Less(schema, "name", parquet.Value{}); err == nil {
		t.Error("null constant was accepted")
	}
}

type numericRow struct {
	ID    int64   `parquet:"id"`
	U     uint64  `parquet:"u"`
	Small uint32  `parquet:"small"`
	F     float64 `parquet:"f"`
}

// numericRows generates rows where the unsigned columns of the first thousand
// rows are above the signed range, and f is NaN on multiples of 7.
func numericRows(n int) []numericRow {
	rows := make([]numericRow, n)
	for i := range rows {
		rows[i] = numericRow{ID: int64(i), U: uint64(i), Small: uint32(i), F: float64(i)}
		if i < 1000 {
			rows[i].U = math.MaxUint64 - uint64(i)
			rows[i].Small = math.MaxUint32 - uint32(i)
		}
		if i%7 == 0 {
			rows[i].F = math.NaN()
		}
	}
	return rows
}

func TestPredicatesOnNumericColumns(t *testing.T) {
	f := openFile(t, writeRows(t, numericRows(3000), 1000))
	schema := f.Schema()

	// pruned is -1 when the count of pruned row groups depends on how the
	// writer orders NaN in statistics.
	tests := []struct {
		expr   string
		count  int
		pruned int64
	}{
		{expr: "u < 1005", count: 5, pruned: 2},
		{expr: "u > 9223372036854775807", count: 1000, pruned: 2},
		{expr: "u = 18446744073709551615", count: 1, pruned: 2},
		{expr: "small >= 4294967000", count: 296, pruned: 2},
		{expr: "small < 2000", count: 1000, pruned: 2},
		{expr: "f < 5", count: 4, pruned: -1},
		{expr: "f <= 5", count: 5, pruned: -1},
		{expr: "f >= 2990", count: 9, pruned: -1},
		{expr: "f != 10", count: 2570, pruned: -1},
		{expr: "f = NaN", count: 0, pruned: 3},
		{expr: "f != NaN", count: 0, pruned: 3},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			p := mustPredicate(t, schema, test.expr)
			with, stats := readAll(t, f, rowfilter.Filter(p))
			without, _ := readAll(t, f, rowfilter.Filter(p), rowfilter.PageIndex(false))
			assertSameDump(t, without, with)

			if n := countLines(with); n != test.count {
				t.Errorf("want %d rows, got %d", test.count, n)
			}
			if test.pruned >= 0 && stats.RowGroupsPruned != test.pruned {
				t.Errorf("want %d row groups pruned, got %d", test.pruned, stats.RowGroupsPruned)
			}
		})
	}
}

func TestUnsignedValuesAreMaterialized(t *testing.T) {
	rows := []numericRow{
		{ID: 0, U: math.MaxUint64 - 1, Small: math.MaxUint32},
		{ID: 1, U: math.MaxUint64, Small: 7},
	}
	f := openFile(t, writeRows(t, rows, 2))
	schema := f.Schema()

	less, err := rowfilter.Less(schema, "u", parquet.Int64Value(5))
	if err != nil {
		t.Fatal(err)
	}
	for _, pageIndex := range []bool{true, false} {
		if dump, _ := readAll(t, f, rowfilter.Filter(less), rowfilter.PageIndex(pageIndex)); dump != "" {
			t.Errorf("page index %t: want no rows, got:\n%s", pageIndex, dump)
		}
	}

	dump, _ := readAll(t, f, rowfilter.Projection(mustMask(t, schema, "u", "small")))
	want := "u=18446744073709551614 small=4294967295\nu=18446744073709551615 small=7\n"
	assertSameDump(t, want, dump)
}
