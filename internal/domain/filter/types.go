package filter

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is a scalar value kind.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindDecimal
	KindUUID
)

var kindNames = map[Kind]string{
	KindString:  "string",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindTime:    "datetime",
	KindDecimal: "decimal",
	KindUUID:    "uuid",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ValueType is the declared type of a leaf field.
type ValueType struct {
	Kind Kind
	Seq  bool
}

var (
	String  = ValueType{Kind: KindString}
	Int     = ValueType{Kind: KindInt}
	Float   = ValueType{Kind: KindFloat}
	Bool    = ValueType{Kind: KindBool}
	Time    = ValueType{Kind: KindTime}
	Decimal = ValueType{Kind: KindDecimal}
	UUID    = ValueType{Kind: KindUUID}
)

// Seq wraps t as a sequence type. Sequences travel as comma-joined strings.
func Seq(t ValueType) ValueType {
	t.Seq = true
	return t
}

func (t ValueType) String() string {
	if t.Seq {
		return "[]" + t.Kind.String()
	}
	return t.Kind.String()
}

// Elem returns the scalar type of a sequence.
func (t ValueType) Elem() ValueType {
	return ValueType{Kind: t.Kind}
}

// SeqSeparator separates sequence items on the wire.
const SeqSeparator = ","

// coerceError carries a pydantic-style error type next to the message.
type coerceError struct {
	typ string
	msg string
}

func (e *coerceError) Error() string { return e.msg }

func errorType(err error) string {
	var ce *coerceError
	if errors.As(err, &ce) {
		return ce.typ
	}
	return "value_error"
}

// Coerce converts a raw request value (string) or a typed Go value to t.
// Sequences are returned as []any.
func Coerce(t ValueType, raw any) (any, error) {
	if !t.Seq {
		return coerceScalar(t.Kind, raw)
	}

	var items []any
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, SeqSeparator) {
			items = append(items, part)
		}
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, &coerceError{typ: "list_type", msg: "Input should be a valid list"}
		}
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := coerceScalar(t.Kind, item)
		if err != nil {
			return nil, &coerceError{typ: errorType(err), msg: fmt.Sprintf("item %d: %s", i, err.Error())}
		}
		out = append(out, v)
	}
	return out, nil
}

func coerceScalar(k Kind, raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return parseScalar(k, strings.TrimSpace(s), s)
	}

	switch k {
	case KindString:
		return fmt.Sprint(raw), nil
	case KindInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int8, int16, int32, int64, uint8, uint16, uint32:
			return reflect.ValueOf(v).Convert(reflect.TypeOf(int64(0))).Interface(), nil
		case float64:
			if v == math.Trunc(v) {
				return int64(v), nil
			}
		}
	case KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case KindBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case KindTime:
		if v, ok := raw.(time.Time); ok {
			return v, nil
		}
	case KindDecimal:
		switch v := raw.(type) {
		case decimal.Decimal:
			return v, nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		}
	case KindUUID:
		if v, ok := raw.(uuid.UUID); ok {
			return v, nil
		}
	}
	return nil, typeMismatch(k)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseScalar(k Kind, s, original string) (any, error) {
	switch k {
	case KindString:
		return original, nil
	case KindInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, typeMismatch(k)
		}
		return v, nil
	case KindFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, typeMismatch(k)
		}
		return v, nil
	case KindBool:
		switch strings.ToLower(s) {
		case "1", "t", "true", "y", "yes", "on":
			return true, nil
		case "0", "f", "false", "n", "no", "off":
			return false, nil
		}
		return nil, typeMismatch(k)
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, typeMismatch(k)
	case KindDecimal:
		v, err := decimal.NewFromString(s)
		if err != nil {
			return nil, typeMismatch(k)
		}
		return v, nil
	case KindUUID:
		v, err := uuid.Parse(s)
		if err != nil {
			return nil, typeMismatch(k)
		}
		return v, nil
	}
	return nil, typeMismatch(k)
}

func typeMismatch(k Kind) error {
	switch k {
	case KindInt:
		return &coerceError{typ: "int_parsing", msg: "Input should be a valid integer"}
	case KindFloat:
		return &coerceError{typ: "float_parsing", msg: "Input should be a valid number"}
	case KindBool:
		return &coerceError{typ: "bool_parsing", msg: "Input should be a valid boolean"}
	case KindTime:
		return &coerceError{typ: "datetime_parsing", msg: "Input should be a valid datetime"}
	case KindDecimal:
		return &coerceError{typ: "decimal_parsing", msg: "Input should be a valid decimal"}
	case KindUUID:
		return &coerceError{typ: "uuid_parsing", msg: "Input should be a valid UUID"}
	default:
		return &coerceError{typ: "string_type", msg: "Input should be a valid string"}
	}
}

// FormatValue renders a typed value the way it travels in a query string.
// Sequences are joined with SeqSeparator.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, FormatValue(rv.Index(i).Interface()))
		}
		return strings.Join(parts, SeqSeparator)
	}
	return fmt.Sprint(v)
}
