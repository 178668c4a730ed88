package rowfilter

import (
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Selection is a dense vector of flags marking the rows of a row group that
// remain candidates for the output.
type Selection []bool

// SelectAll returns a selection of n rows which are all selected.
func SelectAll(n int) Selection {
	s := make(Selection, n)
	for i := range s {
		s[i] = true
	}
	return s
}

// Len returns the number of rows covered by the selection.
func (s Selection) Len() int { return len(s) }

// Count returns the number of selected rows.
func (s Selection) Count() int {
	n := 0
	for _, selected := range s {
		if selected {
			n++
		}
	}
	return n
}

// Fold returns a copy of s where the selected rows are combined by logical
// AND with result, which holds one flag per selected row of s.
//
// The function panics if the length of result differs from s.Count().
func (s Selection) Fold(result Selection) Selection {
	folded := make(Selection, len(s))
	j := 0
	for i, selected := range s {
		if selected {
			folded[i] = result[j]
			j++
		}
	}
	if j != len(result) {
		panic("rowfilter: folding selections of mismatching lengths")
	}
	return folded
}

// Relative returns, for each row selected in base, whether the row is also
// selected in s. It is used to narrow arrays which were materialized for the
// rows of base.
func (s Selection) Relative(base Selection) Selection {
	relative := make(Selection, 0, base.Count())
	for i, selected := range base {
		if selected {
			relative = append(relative, s[i])
		}
	}
	return relative
}

// Covers reports whether all rows selected in s are also selected in base.
func (s Selection) Covers(base Selection) bool {
	for i, selected := range s {
		if selected && !base[i] {
			return false
		}
	}
	return true
}

// Range is a run of consecutive selected rows.
type Range struct {
	Offset int64
	Length int64
}

func (r Range) End() int64 { return r.Offset + r.Length }

// Ranges returns the runs of selected rows in ascending order.
func (s Selection) Ranges() []Range {
	var ranges []Range
	for i := 0; i < len(s); {
		if !s[i] {
			i++
			continue
		}
		j := i + 1
		for j < len(s) && s[j] {
			j++
		}
		ranges = append(ranges, Range{Offset: int64(i), Length: int64(j - i)})
		i = j
	}
	return ranges
}

// Boolean returns the selection as an arrow boolean array.
func (s Selection) Boolean(mem memory.Allocator) *array.Boolean {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.AppendValues(s, nil)
	return b.NewBooleanArray()
}

// selectionOf converts the result of a predicate into a selection, null
// entries are not selected.
func selectionOf(result *array.Boolean) Selection {
	s := make(Selection, result.Len())
	for i := range s {
		s[i] = result.IsValid(i) && result.Value(i)
	}
	return s
}
