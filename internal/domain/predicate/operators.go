package predicate

import (
	"fmt"
	"strings"

	"querykit/internal/core/apperror"
)

// Operator is a filter field suffix token (`price__lt`).
type Operator string

const (
	OpEq     Operator = "eq"     // equal, implied by a bare field name
	OpNeq    Operator = "neq"    // not equal
	OpGt     Operator = "gt"     // greater than
	OpGte    Operator = "gte"    // greater than or equal
	OpLt     Operator = "lt"     // less than
	OpLte    Operator = "lte"    // less than or equal
	OpIn     Operator = "in"     // in list
	OpNin    Operator = "nin"    // not in list
	OpNotIn  Operator = "not_in" // not in list, same as nin
	OpIsNull Operator = "isnull" // true: IS NULL, false: IS NOT NULL
	OpLike   Operator = "like"   // case-sensitive pattern, wrapped when no %
	OpILike  Operator = "ilike"  // case-insensitive pattern, wrapped when no %
	OpNot    Operator = "not"    // IS DISTINCT FROM
)

// FieldSeparator joins relation paths, prefixes and operator suffixes.
const FieldSeparator = "__"

type operatorInfo struct {
	cmp       Comparison
	sequence  bool
	transform func(field string, value any) (Comparison, any, error)
}

var operators = map[Operator]operatorInfo{
	OpEq:     {cmp: Eq},
	OpNeq:    {cmp: NotEq},
	OpGt:     {cmp: Gt},
	OpGte:    {cmp: Gte},
	OpLt:     {cmp: Lt},
	OpLte:    {cmp: Lte},
	OpIn:     {cmp: In, sequence: true},
	OpNin:    {cmp: NotIn, sequence: true},
	OpNotIn:  {cmp: NotIn, sequence: true},
	OpIsNull: {transform: isNullTransform},
	OpLike:   {cmp: Like, transform: likeTransform(Like)},
	OpILike:  {cmp: ILike, transform: likeTransform(ILike)},
	OpNot:    {cmp: IsNot},
}

// ParseOperator converts a suffix token to an Operator.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	_, ok := operators[op]
	return op, ok
}

// ExpectsSequence reports whether the operator takes a list of values.
func (o Operator) ExpectsSequence() bool {
	return operators[o].sequence
}

// Apply resolves the operator against a coerced filter value.
func (o Operator) Apply(field string, value any) (Comparison, any, error) {
	info, ok := operators[o]
	if !ok {
		return "", nil, apperror.NewInvalidOperator(field, string(o))
	}
	if info.transform != nil {
		return info.transform(field, value)
	}
	if info.sequence {
		if _, ok := value.([]any); !ok {
			value = []any{value}
		}
	}
	return info.cmp, value, nil
}

// SplitField splits a leaf field name into its base name and operator.
// A name without separator is an implicit equality. Otherwise the last
// segment must be a known operator.
func SplitField(name string) (string, Operator, error) {
	idx := strings.LastIndex(name, FieldSeparator)
	if idx < 0 {
		return name, OpEq, nil
	}
	base, token := name[:idx], name[idx+len(FieldSeparator):]
	op, ok := ParseOperator(token)
	if !ok || base == "" {
		return "", "", apperror.NewInvalidOperator(name, token)
	}
	return base, op, nil
}

func isNullTransform(field string, value any) (Comparison, any, error) {
	flag, ok := value.(bool)
	if !ok {
		return "", nil, apperror.NewInvalidInput(fmt.Sprintf("%s__isnull expects a boolean, got %T", field, value))
	}
	if flag {
		return IsNull, nil, nil
	}
	return IsNotNull, nil, nil
}

func likeTransform(cmp Comparison) func(string, any) (Comparison, any, error) {
	return func(field string, value any) (Comparison, any, error) {
		return cmp, WrapLike(fmt.Sprint(value)), nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern matches value literally anywhere in the column: LIKE
// wildcards and the escape character in value are escaped.
func ContainsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// WrapLike turns a plain value into a "contains" pattern unless the caller
// already supplied a wildcard.
func WrapLike(value string) string {
	if strings.Contains(value, "%") {
		return value
	}
	return "%" + value + "%"
}
