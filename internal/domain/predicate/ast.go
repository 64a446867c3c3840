// Package predicate holds the backend-neutral condition tree compiled from
// filter instances, and the compiler that produces it.
//
// Backends lower the tree to their native query API: see
// storage/postgres for squirrel and storage/memory for CEL.
package predicate

import (
	"fmt"
	"strings"

	"querykit/internal/metadata"
)

// Comparison is the kind of a leaf comparison.
type Comparison string

const (
	Eq        Comparison = "="
	NotEq     Comparison = "<>"
	Gt        Comparison = ">"
	Gte       Comparison = ">="
	Lt        Comparison = "<"
	Lte       Comparison = "<="
	In        Comparison = "IN"
	NotIn     Comparison = "NOT IN"
	IsNull    Comparison = "IS NULL"
	IsNotNull Comparison = "IS NOT NULL"
	IsNot     Comparison = "IS DISTINCT FROM"
	Like      Comparison = "LIKE"
	ILike     Comparison = "ILIKE"
)

// Predicate is a node of the condition tree. Only types of this package implement it.
type Predicate interface {
	isPredicate()
}

// Compare tests a column of the current entity.
// Value is nil for IsNull/IsNotNull and a []any for In/NotIn.
type Compare struct {
	Field string
	Op    Comparison
	Value any
}

// And is satisfied when every child is. An empty And is always true.
type And []Predicate

// Or is satisfied when any child is. An empty Or is always false.
type Or []Predicate

// Exists is satisfied when at least one row of a to-many relation satisfies Where.
type Exists struct {
	Relation *metadata.RelationDef
	Where    Predicate
}

// Has is satisfied when the row of a to-one relation is present and satisfies Where.
type Has struct {
	Relation *metadata.RelationDef
	Where    Predicate
}

func (Compare) isPredicate() {}
func (And) isPredicate()     {}
func (Or) isPredicate()      {}
func (Exists) isPredicate()  {}
func (Has) isPredicate()     {}

// IsEmpty reports whether p places no restriction at all.
func IsEmpty(p Predicate) bool {
	switch v := p.(type) {
	case nil:
		return true
	case And:
		for _, c := range v {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders p in a SQL-like notation for logs and tests.
func String(p Predicate) string {
	var b strings.Builder
	write(&b, p)
	return b.String()
}

func write(b *strings.Builder, p Predicate) {
	switch v := p.(type) {
	case nil:
		b.WriteString("TRUE")
	case Compare:
		switch v.Op {
		case IsNull, IsNotNull:
			fmt.Fprintf(b, "%s %s", v.Field, v.Op)
		default:
			fmt.Fprintf(b, "%s %s %v", v.Field, v.Op, v.Value)
		}
	case And:
		writeList(b, []Predicate(v), " AND ", "TRUE")
	case Or:
		writeList(b, []Predicate(v), " OR ", "FALSE")
	case Exists:
		fmt.Fprintf(b, "ANY %s(", v.Relation.Name)
		write(b, v.Where)
		b.WriteString(")")
	case Has:
		fmt.Fprintf(b, "HAS %s(", v.Relation.Name)
		write(b, v.Where)
		b.WriteString(")")
	}
}

func writeList(b *strings.Builder, items []Predicate, sep, empty string) {
	if len(items) == 0 {
		b.WriteString(empty)
		return
	}
	if len(items) == 1 {
		write(b, items[0])
		return
	}
	b.WriteString("(")
	for i, c := range items {
		if i > 0 {
			b.WriteString(sep)
		}
		write(b, c)
	}
	b.WriteString(")")
}
