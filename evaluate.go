package rowfilter

import (
	"bytes"
	"cmp"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// coerce converts a constant to the physical type of the column, and to the
// representation that values of the column have in arrow arrays.
func coerce(column Column, value parquet.Value) (parquet.Value, any, error) {
	if value.IsNull() {
		return value, nil, fmt.Errorf("cannot compare to null, use IsNull or IsNotNull instead")
	}

	switch column.Type {
	case Boolean:
		if value.Kind() != parquet.Boolean {
			break
		}
		return parquet.BooleanValue(value.Boolean()), value.Boolean(), nil

	case Int32, Date:
		v, ok := integerOf(value)
		if !ok || v < math.MinInt32 || v > math.MaxInt32 {
			break
		}
		return parquet.Int32Value(int32(v)), int32(v), nil

	case Int64, TimestampMillis, TimestampMicros, TimestampNanos:
		v, ok := integerOf(value)
		if !ok {
			break
		}
		return parquet.Int64Value(v), v, nil

	case Uint32:
		v, ok := unsignedOf(value, parquet.Int32, math.MaxUint32)
		if !ok {
			break
		}
		return parquet.Int32Value(int32(uint32(v))), uint32(v), nil

	case Uint64:
		v, ok := unsignedOf(value, parquet.Int64, math.MaxUint64)
		if !ok {
			break
		}
		return parquet.Int64Value(int64(v)), v, nil

	case Float:
		v, ok := floatOf(value)
		if !ok {
			break
		}
		return parquet.FloatValue(float32(v)), float32(v), nil

	case Double:
		v, ok := floatOf(value)
		if !ok {
			break
		}
		return parquet.DoubleValue(v), v, nil

	case String:
		if k := value.Kind(); k != parquet.ByteArray && k != parquet.FixedLenByteArray {
			break
		}
		b := value.ByteArray()
		return parquet.ByteArrayValue(b), string(b), nil

	case Binary:
		if k := value.Kind(); k != parquet.ByteArray && k != parquet.FixedLenByteArray {
			break
		}
		b := bytes.Clone(value.ByteArray())
		return parquet.ByteArrayValue(b), b, nil

	case FixedLenByteArray:
		b := value.ByteArray()
		if len(b) != column.Length {
			break
		}
		b = bytes.Clone(b)
		return parquet.FixedLenByteArrayValue(b), b, nil

	case UUID:
		id, ok := uuidOf(value)
		if !ok {
			break
		}
		return parquet.FixedLenByteArrayValue(id[:]), id.String(), nil
	}

	return value, nil, fmt.Errorf("value of kind %s cannot be compared to values of type %s: %w", value.Kind(), column.Type, ErrUnsupportedType)
}

func integerOf(v parquet.Value) (int64, bool) {
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32()), true
	case parquet.Int64:
		return v.Int64(), true
	}
	return 0, false
}

// unsignedOf returns the unsigned integer held by v. A value of the physical
// kind of the column carries the bits of the unsigned integer, as parquet
// stores it, other integers must be in the range [0, max].
func unsignedOf(v parquet.Value, physical parquet.Kind, max uint64) (uint64, bool) {
	if k := v.Kind(); k == physical {
		if k == parquet.Int32 {
			return uint64(uint32(v.Int32())), true
		}
		return uint64(v.Int64()), true
	}
	i, ok := integerOf(v)
	if !ok || i < 0 || uint64(i) > max {
		return 0, false
	}
	return uint64(i), true
}

func floatOf(v parquet.Value) (float64, bool) {
	switch v.Kind() {
	case parquet.Float:
		return float64(v.Float()), true
	case parquet.Double:
		return v.Double(), true
	case parquet.Int32, parquet.Int64:
		i, _ := integerOf(v)
		return float64(i), true
	}
	return 0, false
}

func uuidOf(v parquet.Value) (uuid.UUID, bool) {
	b := v.ByteArray()
	if len(b) == 16 {
		id, err := uuid.FromBytes(b)
		return id, err == nil
	}
	id, err := uuid.ParseBytes(b)
	return id, err == nil
}

// compareArray compares every value of values to constant, null values yield
// false.
func compareArray(values arrow.Array, op operator, constant any) (*array.Boolean, error) {
	switch a := values.(type) {
	case *array.Boolean:
		return compare(a, func(i int) int { return compareBool(a.Value(i), constant.(bool)) }, op), nil
	case *array.Int32:
		return compareOrdered(a, a.Value, op, constant.(int32)), nil
	case *array.Date32:
		return compareOrdered(a, a.Value, op, arrow.Date32(constant.(int32))), nil
	case *array.Int64:
		return compareOrdered(a, a.Value, op, constant.(int64)), nil
	case *array.Timestamp:
		return compareOrdered(a, a.Value, op, arrow.Timestamp(constant.(int64))), nil
	case *array.Uint32:
		return compareOrdered(a, a.Value, op, constant.(uint32)), nil
	case *array.Uint64:
		return compareOrdered(a, a.Value, op, constant.(uint64)), nil
	case *array.Float32:
		return compareFloat(a, a.Value, op, constant.(float32)), nil
	case *array.Float64:
		return compareFloat(a, a.Value, op, constant.(float64)), nil
	case *array.String:
		return compareOrdered(a, a.Value, op, constant.(string)), nil
	case *array.Binary:
		v := constant.([]byte)
		return compare(a, func(i int) int { return bytes.Compare(a.Value(i), v) }, op), nil
	case *array.FixedSizeBinary:
		v := constant.([]byte)
		return compare(a, func(i int) int { return bytes.Compare(a.Value(i), v) }, op), nil
	default:
		return nil, fmt.Errorf("comparing arrays of type %s: %w", values.DataType(), ErrUnsupportedType)
	}
}

func compareOrdered[T cmp.Ordered](values arrow.Array, value func(int) T, op operator, constant T) *array.Boolean {
	return compare(values, func(i int) int { return cmp.Compare(value(i), constant) }, op)
}

// compareFloat is compareOrdered for floating point values. NaN is unordered
// and satisfies no comparison, not even !=.
func compareFloat[T float32 | float64](values arrow.Array, value func(int) T, op operator, constant T) *array.Boolean {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.Reserve(values.Len())

	nan := math.IsNaN(float64(constant))
	for i := range values.Len() {
		v := value(i)
		b.UnsafeAppend(values.IsValid(i) && !nan && !math.IsNaN(float64(v)) && op.test(cmp.Compare(v, constant)))
	}
	return b.NewBooleanArray()
}

func compare(values arrow.Array, compare func(int) int, op operator) *array.Boolean {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.Reserve(values.Len())

	for i := range values.Len() {
		b.UnsafeAppend(values.IsValid(i) && op.test(compare(i)))
	}
	return b.NewBooleanArray()
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return +1
	default:
		return -1
	}
}

func testNulls(values arrow.Array, null bool) *array.Boolean {
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.Reserve(values.Len())

	for i := range values.Len() {
		b.UnsafeAppend(values.IsNull(i) == null)
	}
	return b.NewBooleanArray()
}
