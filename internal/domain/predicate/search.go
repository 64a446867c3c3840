package predicate

import (
	"strings"

	"querykit/internal/core/apperror"
	"querykit/internal/metadata"
)

// Search builds a case-insensitive substring match of term over paths. The
// term is matched literally, % and _ included.
//
// Paths through the same relation share one Exists/Has node. The result is
// nil when paths or term are empty. When no path resolves the search fails
// with InvalidField.
func Search(entity *metadata.EntityDef, paths []string, term string) (Predicate, error) {
	if len(paths) == 0 || term == "" {
		return nil, nil
	}
	p := search(entity, paths, ContainsPattern(term))
	if p == nil {
		return nil, apperror.NewInvalidField(entity.Name, strings.Join(paths, ","), "no valid searchable field")
	}
	return p, nil
}

func search(entity *metadata.EntityDef, paths []string, pattern string) Predicate {
	var (
		out    Or
		order  []string
		groups = make(map[string][]string)
	)

	for _, path := range paths {
		segs := splitPath(path)
		head := segs[0]

		if rel, ok := entity.Relation(head); ok && len(segs) > 1 && rel.Entity() != nil {
			if _, seen := groups[head]; !seen {
				order = append(order, head)
			}
			groups[head] = append(groups[head], strings.Join(segs[1:], FieldSeparator))
			continue
		}
		if len(segs) == 1 && entity.HasField(head) {
			out = append(out, Compare{Field: head, Op: ILike, Value: pattern})
		}
	}

	for _, name := range order {
		rel, _ := entity.Relation(name)
		sub := search(rel.Entity(), groups[name], pattern)
		if sub == nil {
			continue
		}
		out = append(out, wrap(rel, sub))
	}

	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
