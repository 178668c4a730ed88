package rowfilter

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/parquet-go/parquet-go"
)

// LogicalType enumerates the value types that columns can be materialized as.
type LogicalType int

const (
	Unsupported LogicalType = iota
	Boolean
	Int32
	Int64
	Float
	Double
	String
	Binary
	FixedLenByteArray
	UUID
	Date
	TimestampMillis
	TimestampMicros
	TimestampNanos
	Uint32
	Uint64
)

var logicalTypeNames = [...]string{
	Unsupported:       "unsupported",
	Boolean:           "boolean",
	Int32:             "int32",
	Int64:             "int64",
	Float:             "float",
	Double:            "double",
	String:            "string",
	Binary:            "binary",
	FixedLenByteArray: "fixed_len_byte_array",
	UUID:              "uuid",
	Date:              "date",
	TimestampMillis:   "timestamp(millisecond)",
	TimestampMicros:   "timestamp(microsecond)",
	TimestampNanos:    "timestamp(nanosecond)",
	Uint32:            "uint32",
	Uint64:            "uint64",
}

func (t LogicalType) String() string {
	if t >= 0 && int(t) < len(logicalTypeNames) {
		return logicalTypeNames[t]
	}
	return fmt.Sprintf("LogicalType(%d)", int(t))
}

// Column describes a leaf column of a parquet schema.
type Column struct {
	// Dotted path of the column, for example "a.b.c".
	Name string
	// Path of the column in the parquet schema.
	Path []string
	// Logical type that values of the column are materialized as.
	Type LogicalType
	// Position of the leaf column in the schema, this is the identifier used
	// by projection masks.
	Position int
	// Position of the top-level field that the column belongs to.
	Root int
	// Length of values of FIXED_LEN_BYTE_ARRAY columns.
	Length   int
	Optional bool
	Repeated bool

	node parquet.Node
}

// ParquetType returns the physical parquet type of the column.
func (c *Column) ParquetType() parquet.Type { return c.node.Type() }

// Compare compares two values of the column's type.
func (c *Column) Compare(a, b parquet.Value) int { return c.node.Type().Compare(a, b) }

// ArrowType returns the arrow data type that values of the column are
// materialized as.
func (c *Column) ArrowType() (arrow.DataType, error) {
	switch c.Type {
	case Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case Uint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case Uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case Float:
		return arrow.PrimitiveTypes.Float32, nil
	case Double:
		return arrow.PrimitiveTypes.Float64, nil
	case String, UUID:
		return arrow.BinaryTypes.String, nil
	case Binary:
		return arrow.BinaryTypes.Binary, nil
	case FixedLenByteArray:
		return &arrow.FixedSizeBinaryType{ByteWidth: c.Length}, nil
	case Date:
		return arrow.FixedWidthTypes.Date32, nil
	case TimestampMillis:
		return arrow.FixedWidthTypes.Timestamp_ms, nil
	case TimestampMicros:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case TimestampNanos:
		return arrow.FixedWidthTypes.Timestamp_ns, nil
	default:
		return nil, fmt.Errorf("column %q of type %s: %w", c.Name, c.node.Type(), ErrUnsupportedType)
	}
}

func (c *Column) arrowField() (arrow.Field, error) {
	dataType, err := c.ArrowType()
	if err != nil {
		return arrow.Field{}, err
	}
	return arrow.Field{Name: c.Name, Type: dataType, Nullable: c.Optional}, nil
}

// Schema is the descriptor of the leaf columns of a parquet file.
//
// Schema values are immutable, they can be shared by multiple readers.
type Schema struct {
	schema  *parquet.Schema
	columns []Column
	roots   [][]int
	lookup  map[string]int
}

// NewSchema constructs a schema descriptor from a parquet schema.
func NewSchema(schema *parquet.Schema) (*Schema, error) {
	fields := schema.Fields()
	paths := schema.Columns()

	s := &Schema{
		schema:  schema,
		columns: make([]Column, 0, len(paths)),
		roots:   make([][]int, len(fields)),
		lookup:  make(map[string]int, len(paths)),
	}

	rootIndex := make(map[string]int, len(fields))
	for i, field := range fields {
		rootIndex[field.Name()] = i
	}

	for _, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("schema %s: missing leaf column %q", schema.Name(), strings.Join(path, "."))
		}
		root, ok := rootIndex[path[0]]
		if !ok {
			return nil, fmt.Errorf("schema %s: leaf column %q has no root field", schema.Name(), strings.Join(path, "."))
		}

		position := len(s.columns)
		if leaf.ColumnIndex != position {
			return nil, fmt.Errorf("schema %s: leaf column %q at position %d has index %d", schema.Name(), strings.Join(path, "."), position, leaf.ColumnIndex)
		}

		column := Column{
			Name:     strings.Join(path, "."),
			Path:     path,
			Type:     logicalTypeOf(leaf.Node.Type()),
			Position: position,
			Root:     root,
			Length:   leaf.Node.Type().Length(),
			Optional: leaf.MaxDefinitionLevel > 0,
			Repeated: leaf.MaxRepetitionLevel > 0,
			node:     leaf.Node,
		}

		s.columns = append(s.columns, column)
		s.roots[root] = append(s.roots[root], position)
		s.lookup[column.Name] = position
	}

	return s, nil
}

// Parquet returns the underlying parquet schema.
func (s *Schema) Parquet() *parquet.Schema { return s.schema }

// NumColumns returns the number of leaf columns.
func (s *Schema) NumColumns() int { return len(s.columns) }

// NumRoots returns the number of top-level fields.
func (s *Schema) NumRoots() int { return len(s.roots) }

// Columns returns the leaf columns in schema order. The returned slice must
// not be modified.
func (s *Schema) Columns() []Column { return s.columns }

// Column returns the leaf column at the given position.
func (s *Schema) Column(position int) Column { return s.columns[position] }

// Lookup returns the leaf column with the given dotted name.
func (s *Schema) Lookup(name string) (Column, bool) {
	i, ok := s.lookup[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// ArrowSchema returns the arrow schema of batches restricted to the mask.
func (s *Schema) ArrowSchema(mask Mask) (*arrow.Schema, error) {
	positions := mask.Positions()
	fields := make([]arrow.Field, len(positions))
	for i, position := range positions {
		field, err := s.columns[position].arrowField()
		if err != nil {
			return nil, err
		}
		fields[i] = field
	}
	return arrow.NewSchema(fields, nil), nil
}

func (s *Schema) String() string {
	b := new(strings.Builder)
	b.WriteString("schema ")
	b.WriteString(s.schema.Name())
	b.WriteString(" {")
	for _, c := range s.columns {
		b.WriteString("\n\t")
		fmt.Fprintf(b, "%d: ", c.Position)
		switch {
		case c.Repeated:
			b.WriteString("repeated ")
		case c.Optional:
			b.WriteString("optional ")
		default:
			b.WriteString("required ")
		}
		b.WriteString(c.Type.String())
		b.WriteString(" ")
		b.WriteString(c.Name)
	}
	b.WriteString("\n}")
	return b.String()
}

func logicalTypeOf(t parquet.Type) LogicalType {
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil:
			return String
		case lt.UUID != nil:
			return UUID
		case lt.Date != nil:
			return Date
		case lt.Integer != nil && !lt.Integer.IsSigned:
			// UINT_8 and UINT_16 are widened, arrow arrays hold the
			// physical INT32 bits.
			if lt.Integer.BitWidth == 64 {
				return Uint64
			}
			return Uint32
		case lt.Timestamp != nil:
			switch unit := lt.Timestamp.Unit; {
			case unit.Millis != nil:
				return TimestampMillis
			case unit.Micros != nil:
				return TimestampMicros
			case unit.Nanos != nil:
				return TimestampNanos
			}
		}
	}

	switch t.Kind() {
	case parquet.Boolean:
		return Boolean
	case parquet.Int32:
		return Int32
	case parquet.Int64:
		return Int64
	case parquet.Float:
		return Float
	case parquet.Double:
		return Double
	case parquet.ByteArray:
		return Binary
	case parquet.FixedLenByteArray:
		return FixedLenByteArray
	default:
		return Unsupported
	}
}
