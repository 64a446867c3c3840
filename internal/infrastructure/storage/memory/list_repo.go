package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"time"

	"querykit/internal/core/apperror"
	"querykit/internal/domain"
	"querykit/internal/domain/ordering"
	"querykit/internal/domain/pagination"
	"querykit/internal/domain/predicate"
)

// ListRepo implements domain.Repository over a Store.
type ListRepo struct {
	store  *Store
	engine *Engine
}

var _ domain.Repository = (*ListRepo)(nil)

// NewListRepo creates a repository reading from store.
func NewListRepo(store *Store) (*ListRepo, error) {
	engine, err := NewEngine()
	if err != nil {
		return nil, err
	}
	return &ListRepo{store: store, engine: engine}, nil
}

type match struct {
	row      domain.Row
	hydrated domain.Row
}

// List filters, sorts and slices the plan entity's rows.
func (r *ListRepo) List(ctx context.Context, plan domain.Plan) (pagination.Page[domain.Row], error) {
	if plan.Page == nil {
		plan.Page = pagination.DefaultPage()
	}
	matches, err := r.match(ctx, plan)
	if err != nil {
		return pagination.Page[domain.Row]{}, err
	}

	sortMatches(matches, plan.Order)
	window := pagination.Slice(matches, plan.Page)

	items := make([]domain.Row, 0, len(window))
	for _, m := range window {
		items = append(items, maps.Clone(m.row))
	}
	return pagination.Paginate(items, len(matches), plan.Page), nil
}

// Count returns the number of rows matching plan.Where.
func (r *ListRepo) Count(ctx context.Context, plan domain.Plan) (int, error) {
	matches, err := r.match(ctx, plan)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func (r *ListRepo) match(ctx context.Context, plan domain.Plan) ([]match, error) {
	if plan.Entity == nil {
		return nil, apperror.NewMissingContext("entity schema")
	}

	matcher, err := r.engine.Compile(plan.Where)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	tree := relationsOf(plan.Where, plan.Order)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []match
	for i, row := range r.store.tables[plan.Entity.Table] {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hydrated := r.store.hydrate(plan.Entity, row, tree)
		ok, err := matcher.Match(hydrated)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		if ok {
			out = append(out, match{row: row, hydrated: hydrated})
		}
	}
	return out, nil
}

// relationsOf collects the relations a predicate and an ordering traverse.
func relationsOf(p predicate.Predicate, order []ordering.Term) relTree {
	tree := relTree{}
	var walk func(predicate.Predicate, relTree)
	walk = func(p predicate.Predicate, t relTree) {
		switch v := p.(type) {
		case predicate.And:
			for _, c := range v {
				walk(c, t)
			}
		case predicate.Or:
			for _, c := range v {
				walk(c, t)
			}
		case predicate.Exists:
			walk(v.Where, t.add(v.Relation.Name))
		case predicate.Has:
			walk(v.Where, t.add(v.Relation.Name))
		}
	}
	walk(p, tree)

	for _, term := range order {
		names := make([]string, 0, len(term.Relations))
		for _, rel := range term.Relations {
			names = append(names, rel.Name)
		}
		tree.add(names...)
	}
	return tree
}

func sortMatches(matches []match, order []ordering.Term) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(matches, func(i, j int) bool {
		for _, term := range order {
			c := compareNullsLast(termValue(matches[i].hydrated, term), termValue(matches[j].hydrated, term))
			if term.Desc() {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func termValue(row domain.Row, term ordering.Term) any {
	cur := map[string]any(row)
	for _, rel := range term.Relations {
		next, ok := cur[rel.Name].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur[term.Column]
}

// compareNullsLast orders NULL after every value, like PostgreSQL does for ASC.
func compareNullsLast(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y)
		case float64:
			return cmpOrdered(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y)
		case int64:
			return cmpOrdered(x, float64(y))
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
