package rowfilter

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/parquet-go/parquet-go"
)

// Predicate is the interface implemented by row predicates.
//
// Evaluate is called with a batch holding the columns of Mask, in schema
// order, for the rows of a row group that are still candidates for the
// output. The returned array must have one entry per row of the batch, true
// keeps the row and false or null eliminates it. The batch is only valid for
// the duration of the call.
type Predicate interface {
	Mask() Mask
	Evaluate(batch arrow.Record) (*array.Boolean, error)
}

// Statistics describes the values of one column over a range of rows, either a
// whole row group or a single page.
type Statistics struct {
	Column Column
	// Bounds of the non-null values, only valid if HasMinMax is true.
	Min, Max  parquet.Value
	HasMinMax bool
	// Number of null values in the range.
	NullCount int64
	// Number of rows in the range, or zero if unknown.
	NumRows int64
	// True when all values in the range are null.
	NullPage bool
}

func (s *Statistics) allNulls() bool {
	return s.NullPage || (s.NumRows > 0 && s.NullCount == s.NumRows)
}

// Pruner is implemented by predicates which can prove from statistics that a
// range of rows contains no row satisfying the predicate.
//
// CanSkip is called with the statistics of each column of the predicate's
// mask, returning true for any of them skips the range. Implementations must
// never return true for a range that might hold a matching row.
type Pruner interface {
	CanSkip(stats Statistics) bool
}

// BloomPruner is implemented by predicates which can skip row groups using the
// bloom filter of a column.
type BloomPruner interface {
	CanSkipBloom(column Column, filter parquet.BloomFilter) (bool, error)
}

// FuncPredicate adapts a function to the Predicate interface.
type FuncPredicate struct {
	mask  Mask
	fn    func(arrow.Record) (*array.Boolean, error)
	prune func(Statistics) bool
}

// Func constructs a predicate evaluating fn on the columns of mask.
func Func(mask Mask, fn func(arrow.Record) (*array.Boolean, error)) *FuncPredicate {
	return &FuncPredicate{mask: mask, fn: fn}
}

// WithPrune returns a copy of p which uses prune to skip row groups and pages.
func (p *FuncPredicate) WithPrune(prune func(Statistics) bool) *FuncPredicate {
	return &FuncPredicate{mask: p.mask, fn: p.fn, prune: prune}
}

func (p *FuncPredicate) Mask() Mask { return p.mask }

func (p *FuncPredicate) Evaluate(batch arrow.Record) (*array.Boolean, error) { return p.fn(batch) }

func (p *FuncPredicate) CanSkip(stats Statistics) bool { return p.prune != nil && p.prune(stats) }

type operator int

const (
	opEqual operator = iota
	opNotEqual
	opLess
	opLessEqual
	opGreater
	opGreaterEqual
	opIsNull
	opIsNotNull
)

var operatorNames = [...]string{
	opEqual:        "=",
	opNotEqual:     "!=",
	opLess:         "<",
	opLessEqual:    "<=",
	opGreater:      ">",
	opGreaterEqual: ">=",
	opIsNull:       "is null",
	opIsNotNull:    "is not null",
}

func (op operator) String() string { return operatorNames[op] }

func (op operator) test(c int) bool {
	switch op {
	case opEqual:
		return c == 0
	case opNotEqual:
		return c != 0
	case opLess:
		return c < 0
	case opLessEqual:
		return c <= 0
	case opGreater:
		return c > 0
	default:
		return c >= 0
	}
}

// comparison is the predicate type of the built-in comparison operators, it
// compares a single column to a constant.
type comparison struct {
	op     operator
	column Column
	mask   Mask
	// Constant in the physical type of the column, used against statistics.
	value parquet.Value
	// Constant in the arrow representation of the column.
	native any
	// The constant is NaN, no row satisfies the comparison.
	nan bool
	cmp func(parquet.Value, parquet.Value) int
}

// The comparison constructors convert value to the type of the column. On
// unsigned columns a value of the physical kind of the column holds the
// unsigned bits, as parquet stores them. NaN satisfies no comparison.

// Equal constructs a predicate selecting rows where the column equals value.
func Equal(schema *Schema, name string, value parquet.Value) (Predicate, error) {
	return predicate(newComparison(schema, name, opEqual, value))
}

// NotEqual constructs a predicate selecting rows where the column is not null
// and differs from value.
func NotEqual(schema *Schema, name string, value parquet.Value) (Predicate, error) {
	return predicate(newComparison(schema, name, opNotEqual, value))
}

func Less(schema *Schema, name string, value parquet.Value) (Predicate, error) {
	return predicate(newComparison(schema, name, opLess, value))
}

func LessEqual(schema *Schema, name string, value parquet.Value) (Predicate, error) {
	return predicate(newComparison(schema, name, opLessEqual, value))
}

func Greater(schema *Schema, name string, value parquet.Value) (Predicate, error) {
	return predicate(newComparison(schema, name, opGreater, value))
}

func GreaterEqual(schema *Schema, name string, value parquet.Value) (Predicate, error) {
	return predicate(newComparison(schema, name, opGreaterEqual, value))
}

// IsNull constructs a predicate selecting rows where the column is null.
func IsNull(schema *Schema, name string) (Predicate, error) {
	return predicate(newComparison(schema, name, opIsNull, parquet.Value{}))
}

// IsNotNull constructs a predicate selecting rows where the column is not null.
func IsNotNull(schema *Schema, name string) (Predicate, error) {
	return predicate(newComparison(schema, name, opIsNotNull, parquet.Value{}))
}

func predicate(p *comparison, err error) (Predicate, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newComparison(schema *Schema, name string, op operator, value parquet.Value) (*comparison, error) {
	mask, err := Columns(schema, name)
	if err != nil {
		return nil, err
	}
	column, _ := schema.Lookup(name)
	if _, err := column.ArrowType(); err != nil {
		return nil, err
	}

	p := &comparison{
		op:     op,
		column: column,
		mask:   mask,
		cmp:    parquet.CompareNullsLast(column.Compare),
	}

	if op != opIsNull && op != opIsNotNull {
		if p.value, p.native, err = coerce(column, value); err != nil {
			return nil, fmt.Errorf("comparing column %q to %v: %w", name, value, err)
		}
		switch v := p.native.(type) {
		case float32:
			p.nan = math.IsNaN(float64(v))
		case float64:
			p.nan = math.IsNaN(v)
		}
	}
	return p, nil
}

func (p *comparison) Mask() Mask { return p.mask }

func (p *comparison) String() string {
	if p.op == opIsNull || p.op == opIsNotNull {
		return fmt.Sprintf("%s %s", p.column.Name, p.op)
	}
	return fmt.Sprintf("%s %s %v", p.column.Name, p.op, p.native)
}

func (p *comparison) Evaluate(batch arrow.Record) (*array.Boolean, error) {
	if batch.NumCols() != 1 {
		return nil, fmt.Errorf("predicate %s: expected a batch of one column, got %d", p, batch.NumCols())
	}
	values := batch.Column(0)
	switch p.op {
	case opIsNull:
		return testNulls(values, true), nil
	case opIsNotNull:
		return testNulls(values, false), nil
	default:
		return compareArray(values, p.op, p.native)
	}
}

func (p *comparison) CanSkip(stats Statistics) bool {
	switch p.op {
	case opIsNull:
		return !p.column.Optional
	case opIsNotNull:
		return stats.allNulls()
	}

	// Null values never satisfy a comparison.
	if p.nan || stats.allNulls() {
		return true
	}
	if !stats.HasMinMax {
		return false
	}

	min, max := stats.Min, stats.Max
	switch p.op {
	case opEqual:
		return p.cmp(p.value, min) < 0 || p.cmp(p.value, max) > 0
	case opNotEqual:
		return p.cmp(min, max) == 0 && p.cmp(p.value, min) == 0
	case opLess:
		return p.cmp(min, p.value) >= 0
	case opLessEqual:
		return p.cmp(min, p.value) > 0
	case opGreater:
		return p.cmp(max, p.value) <= 0
	case opGreaterEqual:
		return p.cmp(max, p.value) < 0
	}
	return false
}

func (p *comparison) CanSkipBloom(column Column, filter parquet.BloomFilter) (bool, error) {
	if p.op != opEqual || column.Position != p.column.Position {
		return false, nil
	}
	found, err := filter.Check(p.value)
	if err != nil {
		return false, err
	}
	return !found, nil
}

var (
	_ Pruner      = (*comparison)(nil)
	_ BloomPruner = (*comparison)(nil)
	_ Pruner      = (*FuncPredicate)(nil)
)
