package rowfilter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	rowfilter "github.com/segmentio/parquet-rowfilter"
)

type address struct {
	City string `parquet:"city"`
	Zip  *int32 `parquet:"zip,optional"`
}

type person struct {
	ID       uuid.UUID `parquet:"id,uuid"`
	Name     string    `parquet:"name"`
	Birthday int32     `parquet:"birthday,date"`
	Address  address   `parquet:"address"`
	Tags     []string  `parquet:"tags,list"`
	Created  time.Time `parquet:"created,timestamp(microsecond)"`
	Score    float32   `parquet:"score"`
	Active   bool      `parquet:"active"`
	Blob     []byte    `parquet:"blob"`
}

func personSchema(t *testing.T) *rowfilter.Schema {
	t.Helper()
	schema, err := rowfilter.NewSchema(parquet.SchemaOf(person{}))
	if err != nil {
		t.Fatal(err)
	}
	return schema
}

func TestSchemaColumns(t *testing.T) {
	schema := personSchema(t)

	want := []struct {
		name     string
		typ      rowfilter.LogicalType
		root     int
		optional bool
		repeated bool
	}{
		{name: "id", typ: rowfilter.UUID, root: 0},
		{name: "name", typ: rowfilter.String, root: 1},
		{name: "birthday", typ: rowfilter.Date, root: 2},
		{name: "address.city", typ: rowfilter.String, root: 3},
		{name: "address.zip", typ: rowfilter.Int32, root: 3, optional: true},
		{name: "tags.list.element", typ: rowfilter.String, root: 4, repeated: true},
		{name: "created", typ: rowfilter.TimestampMicros, root: 5},
		{name: "score", typ: rowfilter.Float, root: 6},
		{name: "active", typ: rowfilter.Boolean, root: 7},
		{name: "blob", typ: rowfilter.Binary, root: 8},
	}

	if schema.NumColumns() != len(want) {
		t.Fatalf("want %d columns, got %d:\n%s", len(want), schema.NumColumns(), schema)
	}
	if schema.NumRoots() != 9 {
		t.Errorf("want 9 roots, got %d", schema.NumRoots())
	}

	for i, w := range want {
		c := schema.Column(i)
		// Repeated columns always have a definition level.
		optional := w.optional || w.repeated
		if c.Name != w.name || c.Type != w.typ || c.Position != i || c.Root != w.root || c.Optional != optional || c.Repeated != w.repeated {
			t.Errorf("column %d: want %+v, got %s %s root=%d optional=%t repeated=%t", i, w, c.Name, c.Type, c.Root, c.Optional, c.Repeated)
		}
		found, ok := schema.Lookup(w.name)
		if !ok || found.Position != i {
			t.Errorf("lookup %q: got position %d (found=%t)", w.name, found.Position, ok)
		}
	}

	if _, ok := schema.Lookup("address"); ok {
		t.Error("lookup of a group returned a leaf column")
	}
}

func TestSchemaArrowSchema(t *testing.T) {
	schema := personSchema(t)

	mask, err := rowfilter.Columns(schema, "created", "id", "address.zip")
	if err != nil {
		t.Fatal(err)
	}
	arrowSchema, err := schema.ArrowSchema(mask)
	if err != nil {
		t.Fatal(err)
	}

	// Fields follow the schema order, not the order of the names.
	want := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "address.zip", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "created", Type: arrow.FixedWidthTypes.Timestamp_us},
	}, nil)
	if !arrowSchema.Equal(want) {
		t.Errorf("want %s, got %s", want, arrowSchema)
	}
}

func TestSchemaUnsignedColumns(t *testing.T) {
	schema, err := rowfilter.NewSchema(parquet.SchemaOf(reading{}))
	if err != nil {
		t.Fatal(err)
	}
	arrowSchema, err := schema.ArrowSchema(rowfilter.All(schema))
	if err != nil {
		t.Fatal(err)
	}

	want := arrow.NewSchema([]arrow.Field{
		{Name: "at", Type: arrow.FixedWidthTypes.Timestamp_ns},
		{Name: "count", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "small", Type: arrow.PrimitiveTypes.Uint32},
	}, nil)
	if !arrowSchema.Equal(want) {
		t.Errorf("want %s, got %s", want, arrowSchema)
	}
}

func TestRepeatedColumnsCannotBeProjected(t *testing.T) {
	schema := personSchema(t)

	if _, err := rowfilter.Columns(schema, "tags.list.element"); !errors.Is(err, rowfilter.ErrInvalidProjection) {
		t.Errorf("want invalid projection, got %v", err)
	}
	if _, err := rowfilter.Roots(schema, 4); !errors.Is(err, rowfilter.ErrInvalidProjection) {
		t.Errorf("want invalid projection, got %v", err)
	}
}

func TestMask(t *testing.T) {
	schema := personSchema(t)

	roots, err := rowfilter.Roots(schema, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := roots.String(); got != "{0,3,4}" {
		t.Errorf("roots: want {0,3,4}, got %s", got)
	}

	leaves, err := rowfilter.Leaves(schema, 4, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := leaves.Positions(); len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Errorf("leaves: want [1 4], got %v", got)
	}

	tests := []struct {
		scenario string
		mask     rowfilter.Mask
		want     string
	}{
		{scenario: "union", mask: roots.Union(leaves), want: "{0,1,3,4}"},
		{scenario: "intersect", mask: roots.Intersect(leaves), want: "{4}"},
		{scenario: "difference", mask: roots.Difference(leaves), want: "{0,3}"},
		{scenario: "empty union", mask: rowfilter.Mask{}.Union(leaves), want: "{1,4}"},
		{scenario: "empty intersect", mask: roots.Intersect(rowfilter.Mask{}), want: "{}"},
		{scenario: "empty difference", mask: rowfilter.Mask{}.Difference(roots), want: "{}"},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			if got := test.mask.String(); got != test.want {
				t.Errorf("want %s, got %s", test.want, got)
			}
		})
	}

	if !roots.Contains(3) || roots.Contains(1) || roots.Contains(-1) {
		t.Error("unexpected mask membership")
	}
	if !rowfilter.All(schema).Difference(rowfilter.All(schema)).Empty() {
		t.Error("mask difference with itself is not empty")
	}
	if !roots.Union(leaves).Equal(leaves.Union(roots)) {
		t.Error("mask union is not commutative")
	}
	if roots.Equal(leaves) {
		t.Error("distinct masks are equal")
	}
}
