package rowfilter_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	rowfilter "github.com/segmentio/parquet-rowfilter"
)

func TestParsePredicate(t *testing.T) {
	schema := personSchema(t)

	tests := []struct {
		expr string
		want string
	}{
		{expr: "name = 'Luke'", want: "name = Luke"},
		{expr: `name == "it's"`, want: "name = it's"},
		{expr: "name <> ''", want: "name != "},
		{expr: "name!='o''brien'", want: "name != o'brien"},
		{expr: "address.zip >= -10", want: "address.zip >= -10"},
		{expr: "address.zip<3", want: "address.zip < 3"},
		{expr: "score <= 1.5", want: "score <= 1.5"},
		{expr: "active = true", want: "active = true"},
		{expr: "birthday > '1970-01-11'", want: "birthday > 10"},
		{expr: "created > '1970-01-01T00:00:01Z'", want: "created > 1000000"},
		{expr: "created > 42", want: "created > 42"},
		{expr: "id = '6ba7b810-9dad-11d1-80b4-00c04fd430c8'", want: "id = 6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{expr: "address.zip IS NULL", want: "address.zip is null"},
		{expr: "address.zip is not null", want: "address.zip is not null"},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			p, err := rowfilter.ParsePredicate(schema, test.expr)
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(p); got != test.want {
				t.Errorf("want %q, got %q", test.want, got)
			}
		})
	}
}

func TestParsePredicateErrors(t *testing.T) {
	schema := personSchema(t)

	tests := []struct {
		expr string
		want error
	}{
		{expr: "", want: rowfilter.ErrInvalidPredicate},
		{expr: "name", want: rowfilter.ErrInvalidPredicate},
		{expr: "name ~ 'x'", want: rowfilter.ErrInvalidPredicate},
		{expr: "name = 'unterminated", want: rowfilter.ErrInvalidPredicate},
		{expr: "name is empty", want: rowfilter.ErrInvalidPredicate},
		{expr: "name = null", want: rowfilter.ErrInvalidPredicate},
		{expr: "address.zip = seven", want: rowfilter.ErrInvalidPredicate},
		{expr: "address.zip = 99999999999", want: rowfilter.ErrInvalidPredicate},
		{expr: "id = 'not-a-uuid'", want: rowfilter.ErrInvalidPredicate},
		{expr: "birthday = 'yesterday'", want: rowfilter.ErrInvalidPredicate},
		{expr: "missing = 1", want: rowfilter.ErrInvalidProjection},
		{expr: "tags.list.element = 'a'", want: rowfilter.ErrInvalidProjection},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			_, err := rowfilter.ParsePredicate(schema, test.expr)
			if !errors.Is(err, test.want) {
				t.Errorf("want %v, got %v", test.want, err)
			}
		})
	}
}

func TestParsePredicates(t *testing.T) {
	schema := personSchema(t)

	predicates, err := rowfilter.ParsePredicates(schema, "name = 'a and b' AND score > 1 and address.zip is not null")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"name = a and b", "score > 1", "address.zip is not null"}
	if len(predicates) != len(want) {
		t.Fatalf("want %d predicates, got %d", len(want), len(predicates))
	}
	for i, p := range predicates {
		if got := fmt.Sprint(p); got != want[i] {
			t.Errorf("predicate %d: want %q, got %q", i, want[i], got)
		}
	}

	if _, err := rowfilter.ParsePredicates(schema, "name = 'a' and"); !errors.Is(err, rowfilter.ErrInvalidPredicate) {
		t.Errorf("want invalid predicate, got %v", err)
	}
}

type reading struct {
	At    time.Time `parquet:"at,timestamp(nanosecond)"`
	Count uint64    `parquet:"count"`
	Small uint8     `parquet:"small"`
}

func TestParsePredicateRanges(t *testing.T) {
	schema, err := rowfilter.NewSchema(parquet.SchemaOf(reading{}))
	if err != nil {
		t.Fatal(err)
	}

	valid := []struct {
		expr string
		want string
	}{
		{expr: "at > '2262-04-11T23:47:16.854775807Z'", want: "at > 9223372036854775807"},
		{expr: "at >= '1677-09-21T00:12:43.145224192Z'", want: "at >= -9223372036854775808"},
		{expr: "count = 18446744073709551615", want: "count = 18446744073709551615"},
		{expr: "small = 255", want: "small = 255"},
	}
	for _, test := range valid {
		t.Run(test.expr, func(t *testing.T) {
			p, err := rowfilter.ParsePredicate(schema, test.expr)
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(p); got != test.want {
				t.Errorf("want %q, got %q", test.want, got)
			}
		})
	}

	invalid := []string{
		"at > '2262-04-11T23:47:16.854775808Z'",
		"at < '1677-09-21T00:00:00Z'",
		"at = '9999-12-31T23:59:59Z'",
		"count = 18446744073709551616",
		"count > -1",
		"small = -1",
	}
	for _, expr := range invalid {
		t.Run(expr, func(t *testing.T) {
			if _, err := rowfilter.ParsePredicate(schema, expr); !errors.Is(err, rowfilter.ErrInvalidPredicate) {
				t.Errorf("want %v, got %v", rowfilter.ErrInvalidPredicate, err)
			}
		})
	}
}
