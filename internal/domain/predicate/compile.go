package predicate

import (
	"fmt"
	"strings"

	"querykit/internal/core/apperror"
	"querykit/internal/domain/filter"
	"querykit/internal/metadata"
)

// Compile turns a packed filter into a conjunction over entity.
//
// A nil instance compiles to the empty And. Operator suffixes are checked
// over the whole schema tree first, so an unknown suffix fails even when the
// field carries no value.
func Compile(entity *metadata.EntityDef, inst *filter.Instance) (Predicate, error) {
	if entity == nil {
		return nil, apperror.NewMissingContext("entity schema")
	}
	if inst == nil {
		return And{}, nil
	}
	if err := ValidateOperators(inst.Schema()); err != nil {
		return nil, err
	}
	return compile(entity, inst)
}

// ValidateOperators checks every leaf suffix of s and its nested schemas.
func ValidateOperators(s *filter.Schema) error {
	for _, f := range s.Fields() {
		switch f.Kind {
		case filter.NestedField:
			if err := ValidateOperators(f.Child); err != nil {
				return err
			}
		case filter.LeafField:
			if f.Name == s.SearchFieldName() {
				continue
			}
			if _, _, err := SplitField(f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func compile(entity *metadata.EntityDef, inst *filter.Instance) (Predicate, error) {
	s := inst.Schema()
	out := And{}

	for _, f := range s.Fields() {
		if f.Kind == filter.NestedField {
			p, err := compileNested(entity, f, inst.Nested(f.Name))
			if err != nil {
				return nil, err
			}
			if p != nil {
				out = append(out, p)
			}
			continue
		}

		value, ok := inst.Value(f.Name)
		if !ok || value == nil {
			continue
		}

		if f.Kind == filter.SearchField || f.Name == s.SearchFieldName() {
			p, err := Search(entity, s.Settings().SearchableFields, fmt.Sprint(value))
			if err != nil {
				return nil, err
			}
			if p != nil {
				out = append(out, p)
			}
			continue
		}

		base, op, err := SplitField(f.Name)
		if err != nil {
			return nil, err
		}
		if !entity.HasField(base) {
			return nil, apperror.NewInvalidField(entity.Name, f.Name, "")
		}
		cmp, v, err := op.Apply(base, value)
		if err != nil {
			return nil, err
		}
		out = append(out, Compare{Field: base, Op: cmp, Value: v})
	}
	return out, nil
}

func compileNested(entity *metadata.EntityDef, f filter.Field, child *filter.Instance) (Predicate, error) {
	if child.IsEmpty() {
		return nil, nil
	}
	rel, ok := entity.Relation(f.Name)
	if !ok {
		return nil, apperror.NewInvalidField(entity.Name, f.Name,
			fmt.Sprintf("%q is not a relation of %s", f.Name, entity.Name))
	}
	target := rel.Entity()
	if target == nil {
		return nil, apperror.NewMissingContext(fmt.Sprintf("entity schema of %s.%s", entity.Name, rel.Name))
	}

	where, err := compile(target, child)
	if err != nil {
		return nil, err
	}
	return wrap(rel, where), nil
}

func wrap(rel *metadata.RelationDef, where Predicate) Predicate {
	if rel.Many {
		return Exists{Relation: rel, Where: where}
	}
	return Has{Relation: rel, Where: where}
}

// Walk visits p and all its descendants depth-first.
func Walk(p Predicate, fn func(Predicate)) {
	fn(p)
	switch v := p.(type) {
	case And:
		for _, c := range v {
			Walk(c, fn)
		}
	case Or:
		for _, c := range v {
			Walk(c, fn)
		}
	case Exists:
		Walk(v.Where, fn)
	case Has:
		Walk(v.Where, fn)
	}
}

// Fields lists the dotted column paths p compares, in visiting order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate, string)
	walk = func(p Predicate, prefix string) {
		switch v := p.(type) {
		case Compare:
			out = append(out, prefix+v.Field)
		case And:
			for _, c := range v {
				walk(c, prefix)
			}
		case Or:
			for _, c := range v {
				walk(c, prefix)
			}
		case Exists:
			walk(v.Where, prefix+v.Relation.Name+".")
		case Has:
			walk(v.Where, prefix+v.Relation.Name+".")
		}
	}
	walk(p, "")
	return out
}

func splitPath(path string) []string {
	return strings.Split(path, FieldSeparator)
}
