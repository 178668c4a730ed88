package rowfilter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// ParsePredicate parses a comparison of a column to a constant, for example:
//
//	utf8 <> ''
//	int64 >= 10
//	ts > '2024-01-02T15:04:05Z'
//	name is not null
//
// The supported operators are = == != <> < <= > >=, "is null" and "is not
// null". Literals are interpreted according to the type of the column: string
// literals are quoted with single or double quotes, dates use the 2006-01-02
// layout, and timestamps are either integers in the unit of the column or
// RFC 3339 strings.
func ParsePredicate(schema *Schema, expr string) (Predicate, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, invalidPredicate(expr, err)
	}
	if len(tokens) < 2 || tokens[0].quoted {
		return nil, invalidPredicate(expr, fmt.Errorf("expected <column> <operator> <value>"))
	}

	name := tokens[0].text
	column, ok := schema.Lookup(name)
	if !ok {
		// Masks report unknown columns with a ProjectionError.
		_, err := Columns(schema, name)
		return nil, err
	}

	if strings.EqualFold(tokens[1].text, "is") && !tokens[1].quoted {
		switch {
		case len(tokens) == 3 && isKeyword(tokens[2], "null"):
			return IsNull(schema, name)
		case len(tokens) == 4 && isKeyword(tokens[2], "not") && isKeyword(tokens[3], "null"):
			return IsNotNull(schema, name)
		}
		return nil, invalidPredicate(expr, fmt.Errorf("expected IS NULL or IS NOT NULL"))
	}

	if len(tokens) != 3 {
		return nil, invalidPredicate(expr, fmt.Errorf("expected <column> <operator> <value>"))
	}
	op, ok := parseOperator(tokens[1].text)
	if !ok || tokens[1].quoted {
		return nil, invalidPredicate(expr, fmt.Errorf("unknown operator %q", tokens[1].text))
	}
	value, err := parseLiteral(column, tokens[2])
	if err != nil {
		return nil, invalidPredicate(expr, err)
	}
	return predicate(newComparison(schema, name, op, value))
}

// ParsePredicates parses a conjunction of predicates separated by AND, the
// predicates are returned in the order they appear in expr.
func ParsePredicates(schema *Schema, expr string) ([]Predicate, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, invalidPredicate(expr, err)
	}

	var predicates []Predicate
	var terms []string
	for i, j := 0, 0; j <= len(tokens); j++ {
		if j < len(tokens) && !isKeyword(tokens[j], "and") {
			continue
		}
		if i == j {
			return nil, invalidPredicate(expr, fmt.Errorf("empty term"))
		}
		terms = terms[:0]
		for _, t := range tokens[i:j] {
			terms = append(terms, t.String())
		}
		p, err := ParsePredicate(schema, strings.Join(terms, " "))
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
		i = j + 1
	}
	return predicates, nil
}

func invalidPredicate(expr string, err error) error {
	return fmt.Errorf("%w: %q: %w", ErrInvalidPredicate, expr, err)
}

func parseOperator(s string) (operator, bool) {
	switch s {
	case "=", "==":
		return opEqual, true
	case "!=", "<>":
		return opNotEqual, true
	case "<":
		return opLess, true
	case "<=":
		return opLessEqual, true
	case ">":
		return opGreater, true
	case ">=":
		return opGreaterEqual, true
	}
	return 0, false
}

func parseLiteral(column Column, t token) (parquet.Value, error) {
	s := t.text
	if !t.quoted && strings.EqualFold(s, "null") {
		return parquet.Value{}, fmt.Errorf("cannot compare to null, use IS NULL or IS NOT NULL instead")
	}

	switch column.Type {
	case Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid boolean %q", s)
		}
		return parquet.BooleanValue(b), nil

	case Int32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid int32 %q", s)
		}
		return parquet.Int32Value(int32(i)), nil

	case Int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid int64 %q", s)
		}
		return parquet.Int64Value(i), nil

	case Uint32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid uint32 %q", s)
		}
		return parquet.Int32Value(int32(uint32(u))), nil

	case Uint64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid uint64 %q", s)
		}
		return parquet.Int64Value(int64(u)), nil

	case Float, Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid floating point number %q", s)
		}
		return parquet.DoubleValue(f), nil

	case String, Binary:
		return parquet.ByteArrayValue([]byte(s)), nil

	case FixedLenByteArray:
		return parquet.FixedLenByteArrayValue([]byte(s)), nil

	case UUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		return parquet.FixedLenByteArrayValue(id[:]), nil

	case Date:
		if i, err := strconv.ParseInt(s, 10, 32); err == nil {
			return parquet.Int32Value(int32(i)), nil
		}
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid date %q", s)
		}
		return parquet.Int32Value(int32(d.Unix() / 86400)), nil

	case TimestampMillis, TimestampMicros, TimestampNanos:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return parquet.Int64Value(i), nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid timestamp %q", s)
		}
		unit := time.Nanosecond
		switch column.Type {
		case TimestampMillis:
			unit = time.Millisecond
		case TimestampMicros:
			unit = time.Microsecond
		}
		v, ok := unixIn(ts, unit)
		if !ok {
			return parquet.Value{}, fmt.Errorf("timestamp %q out of range of %s", s, column.Type)
		}
		return parquet.Int64Value(v), nil
	}

	return parquet.Value{}, fmt.Errorf("column %q of type %s: %w", column.Name, column.Type, ErrUnsupportedType)
}

// unixIn returns the number of units elapsed from the unix epoch to ts, false
// if it overflows an int64.
func unixIn(ts time.Time, unit time.Duration) (int64, bool) {
	per := int64(time.Second / unit)
	sec, frac := ts.Unix(), int64(ts.Nanosecond())/int64(unit)
	if sec < 0 && frac > 0 {
		sec, frac = sec+1, frac-per
	}
	v := sec * per
	if v/per != sec || (frac > 0 && v > math.MaxInt64-frac) || (frac < 0 && v < math.MinInt64-frac) {
		return 0, false
	}
	return v + frac, true
}

type token struct {
	text   string
	quoted bool
}

func (t token) String() string {
	if t.quoted {
		return "'" + strings.ReplaceAll(t.text, "'", "''") + "'"
	}
	return t.text
}

func isKeyword(t token, keyword string) bool {
	return !t.quoted && strings.EqualFold(t.text, keyword)
}

func tokenize(s string) ([]token, error) {
	var tokens []token

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '\'' || c == '"':
			text, n, err := scanQuoted(s[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{text: text, quoted: true})
			i += n

		case strings.IndexByte("=!<>", c) >= 0:
			j := i + 1
			for j < len(s) && strings.IndexByte("=!<>", s[j]) >= 0 {
				j++
			}
			tokens = append(tokens, token{text: s[i:j]})
			i = j

		default:
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
			tokens = append(tokens, token{text: s[i:j]})
			i = j
		}
	}

	return tokens, nil
}

// scanQuoted scans a quoted literal at the beginning of s, a quote is escaped
// by doubling it. It returns the unquoted text and the length of the literal.
func scanQuoted(s string) (string, int, error) {
	quote := s[0]
	b := new(strings.Builder)

	for i := 1; i < len(s); i++ {
		if s[i] != quote {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			b.WriteByte(quote)
			i++
			continue
		}
		return b.String(), i + 1, nil
	}

	return "", 0, fmt.Errorf("unterminated string literal %s", s)
}

func isWordByte(c byte) bool {
	r := rune(c)
	return c >= 0x80 || unicode.IsLetter(r) || unicode.IsDigit(r) || strings.IndexByte("_.-+:", c) >= 0
}
