package rowfilter

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Mask is a set of leaf column positions of a schema.
//
// Masks are immutable, operations combining masks return new values. The zero
// value is an empty mask.
type Mask struct {
	bits *bitset.BitSet
}

// All returns a mask selecting every leaf column of the schema.
func All(schema *Schema) Mask {
	bits := bitset.New(uint(schema.NumColumns()))
	for i := range schema.NumColumns() {
		bits.Set(uint(i))
	}
	return Mask{bits}
}

// projectable returns the leaves of the schema which can be materialized into
// batches, repeated leaves are left out.
func projectable(schema *Schema) Mask {
	bits := bitset.New(uint(schema.NumColumns()))
	for _, c := range schema.columns {
		if !c.Repeated {
			bits.Set(uint(c.Position))
		}
	}
	return Mask{bits}
}

// Leaves returns a mask selecting the given leaf positions. Duplicates are
// ignored and the order of positions does not matter.
func Leaves(schema *Schema, leaves ...int) (Mask, error) {
	bits := bitset.New(uint(schema.NumColumns()))
	for _, leaf := range leaves {
		if leaf < 0 || leaf >= schema.NumColumns() {
			return Mask{}, &ProjectionError{Position: leaf, NumColumns: schema.NumColumns(), Reason: "is out of range"}
		}
		if err := checkProjectable(schema, leaf); err != nil {
			return Mask{}, err
		}
		bits.Set(uint(leaf))
	}
	return Mask{bits}, nil
}

// Roots returns a mask selecting every leaf below the given top-level fields.
func Roots(schema *Schema, roots ...int) (Mask, error) {
	bits := bitset.New(uint(schema.NumColumns()))
	for _, root := range roots {
		if root < 0 || root >= schema.NumRoots() {
			return Mask{}, &ProjectionError{Position: root, NumColumns: schema.NumRoots(), Reason: "is not a root field"}
		}
		for _, leaf := range schema.roots[root] {
			if err := checkProjectable(schema, leaf); err != nil {
				return Mask{}, err
			}
			bits.Set(uint(leaf))
		}
	}
	return Mask{bits}, nil
}

// Columns returns a mask selecting the leaf columns with the given dotted names.
func Columns(schema *Schema, names ...string) (Mask, error) {
	bits := bitset.New(uint(schema.NumColumns()))
	for _, name := range names {
		column, ok := schema.Lookup(name)
		if !ok {
			return Mask{}, &ProjectionError{Position: -1, Name: name, NumColumns: schema.NumColumns(), Reason: "does not exist"}
		}
		if err := checkProjectable(schema, column.Position); err != nil {
			return Mask{}, err
		}
		bits.Set(uint(column.Position))
	}
	return Mask{bits}, nil
}

func checkProjectable(schema *Schema, leaf int) error {
	if c := &schema.columns[leaf]; c.Repeated {
		return &ProjectionError{Position: leaf, Name: c.Name, NumColumns: schema.NumColumns(), Reason: "is repeated"}
	}
	return nil
}

// Contains reports whether the leaf position is in the mask.
func (m Mask) Contains(leaf int) bool {
	return m.bits != nil && leaf >= 0 && m.bits.Test(uint(leaf))
}

// Len returns the number of positions in the mask.
func (m Mask) Len() int {
	if m.bits == nil {
		return 0
	}
	return int(m.bits.Count())
}

func (m Mask) Empty() bool { return m.Len() == 0 }

// Positions returns the leaf positions of the mask in ascending order.
func (m Mask) Positions() []int {
	positions := make([]int, 0, m.Len())
	if m.bits == nil {
		return positions
	}
	for i, ok := m.bits.NextSet(0); ok; i, ok = m.bits.NextSet(i + 1) {
		positions = append(positions, int(i))
	}
	return positions
}

// Union returns the positions that are in m or other.
func (m Mask) Union(other Mask) Mask {
	switch {
	case m.bits == nil:
		return other
	case other.bits == nil:
		return m
	}
	return Mask{m.bits.Union(other.bits)}
}

// Intersect returns the positions that are in both m and other.
func (m Mask) Intersect(other Mask) Mask {
	if m.bits == nil || other.bits == nil {
		return Mask{}
	}
	return Mask{m.bits.Intersection(other.bits)}
}

// Difference returns the positions of m that are not in other.
func (m Mask) Difference(other Mask) Mask {
	switch {
	case m.bits == nil:
		return Mask{}
	case other.bits == nil:
		return m
	}
	return Mask{m.bits.Difference(other.bits)}
}

// Equal reports whether the two masks hold the same positions.
func (m Mask) Equal(other Mask) bool {
	if m.Len() != other.Len() {
		return false
	}
	return m.Empty() || m.bits.IntersectionCardinality(other.bits) == m.bits.Count()
}

func (m Mask) String() string {
	positions := m.Positions()
	s := make([]string, len(positions))
	for i, p := range positions {
		s[i] = strconv.Itoa(p)
	}
	return "{" + strings.Join(s, ",") + "}"
}
