// Package ordering compiles `field1,-field2,+rel__field3` order specs.
//
// Resolution is lenient: tokens that do not resolve to a column are skipped,
// never reported.
package ordering

import (
	"strings"

	"querykit/internal/core/apperror"
	"querykit/internal/metadata"
)

// Direction is the sort direction of a term.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

const (
	tokenSeparator = ","
	pathSeparator  = "__"
)

// Term is one resolved sort key. Relations lists the to-one relations walked
// from the root entity to reach Column.
type Term struct {
	Path      []string
	Relations []*metadata.RelationDef
	Column    string
	Direction Direction
}

// Desc reports whether the term sorts descending.
func (t Term) Desc() bool { return t.Direction == Desc }

// String renders the term back in order_by notation.
func (t Term) String() string {
	s := strings.Join(t.Path, pathSeparator)
	if t.Desc() {
		return "-" + s
	}
	return s
}

// Compile resolves orderBy against entity, keeping input order.
func Compile(entity *metadata.EntityDef, orderBy string) ([]Term, error) {
	if strings.TrimSpace(orderBy) == "" {
		return nil, nil
	}
	if entity == nil {
		return nil, apperror.NewMissingContext("entity schema")
	}

	var terms []Term
	for _, token := range strings.Split(orderBy, tokenSeparator) {
		token = strings.TrimSpace(token)
		dir := Asc
		if strings.HasPrefix(token, "-") || strings.HasPrefix(token, "+") {
			if token[0] == '-' {
				dir = Desc
			}
			token = token[1:]
		}
		if token == "" {
			continue
		}

		term, ok := resolve(entity, strings.Split(token, pathSeparator))
		if !ok {
			continue
		}
		term.Direction = dir
		terms = append(terms, term)
	}
	return terms, nil
}

func resolve(entity *metadata.EntityDef, path []string) (Term, bool) {
	term := Term{Path: path}
	current := entity
	for i, seg := range path {
		if i == len(path)-1 {
			if !current.HasField(seg) {
				return Term{}, false
			}
			term.Column = seg
			return term, true
		}
		rel, ok := current.Relation(seg)
		if !ok || rel.Many || rel.Entity() == nil {
			return Term{}, false
		}
		term.Relations = append(term.Relations, rel)
		current = rel.Entity()
	}
	return Term{}, false
}

// String renders terms as an order_by value.
func String(terms []Term) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, tokenSeparator)
}
