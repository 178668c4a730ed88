package rowfilter

import (
	"errors"
	"fmt"

	"github.com/segmentio/parquet-rowfilter/pio"
)

var (
	// ErrInvalidProjection is returned when a projection references a column
	// that does not exist in the schema, or that cannot be projected.
	ErrInvalidProjection = errors.New("invalid projection")

	// ErrPredicateArityMismatch is returned when a predicate produces a
	// selection whose length differs from the number of rows it was given.
	ErrPredicateArityMismatch = errors.New("predicate arity mismatch")

	// ErrDecode is matched by errors caused by malformed or corrupted pages.
	ErrDecode = errors.New("decode error")

	// ErrIO is matched by errors originating from the underlying byte source.
	ErrIO = pio.ErrIO

	// ErrUnsupportedType is returned when a column of a type which cannot be
	// materialized into a batch is projected.
	ErrUnsupportedType = errors.New("unsupported column type")

	// ErrInvalidPredicate is matched by errors returned when parsing predicate
	// expressions.
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrInvalidConfiguration is matched by errors returned when validating
	// reader or file configurations.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ProjectionError describes a column reference which could not be resolved
// against a schema.
type ProjectionError struct {
	Position   int
	Name       string
	NumColumns int
	Reason     string
}

func (e *ProjectionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid projection: column %q %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid projection: column position %d %s (schema has %d columns)", e.Position, e.Reason, e.NumColumns)
}

func (e *ProjectionError) Is(target error) bool { return target == ErrInvalidProjection }

// ArityError is returned when a predicate returns a selection of the wrong
// length.
type ArityError struct {
	RowGroup  int
	Predicate int
	Want      int
	Got       int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("predicate %d on row group %d returned %d values for %d rows: %v",
		e.Predicate, e.RowGroup, e.Got, e.Want, ErrPredicateArityMismatch)
}

func (e *ArityError) Is(target error) bool { return target == ErrPredicateArityMismatch }

// DecodeError carries the identity of the column chunk which failed to decode.
//
// The error unwraps to its cause, so programs can still test for ErrIO when the
// failure originated from the byte source.
type DecodeError struct {
	RowGroup int
	Column   int
	Path     string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding column %d (%s) of row group %d: %v", e.Column, e.Path, e.RowGroup, e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeError(rowGroup int, column Column, err error) error {
	var e *DecodeError
	if errors.As(err, &e) {
		return err
	}
	return &DecodeError{
		RowGroup: rowGroup,
		Column:   column.Position,
		Path:     column.Name,
		Err:      err,
	}
}
