package postgres

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"querykit/internal/core/apperror"
	"querykit/internal/domain"
	"querykit/internal/domain/predicate"
	"querykit/internal/metadata"
)

// rootAlias is the alias of the plan entity's table in every query.
const rootAlias = "t0"

// QueryBuilder renders plans as PostgreSQL statements.
type QueryBuilder struct {
	sb squirrel.StatementBuilderType
}

// NewQueryBuilder returns a builder using $N placeholders.
func NewQueryBuilder() QueryBuilder {
	return QueryBuilder{sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// filtered selects the entity columns of the rows matching plan.Where.
func (b QueryBuilder) filtered(plan domain.Plan) (squirrel.SelectBuilder, error) {
	if plan.Entity == nil {
		return squirrel.SelectBuilder{}, apperror.NewMissingContext("entity schema")
	}

	cols := plan.Entity.ColumnNames()
	for i, c := range cols {
		cols[i] = qualify(rootAlias, c)
	}
	q := b.sb.Select(cols...).From(plan.Entity.Table + " AS " + rootAlias)

	if !predicate.IsEmpty(plan.Where) {
		cond, err := Lower(plan.Where)
		if err != nil {
			return q, err
		}
		q = q.Where(cond)
	}
	return q, nil
}

// List selects one page of the plan: filtered, ordered and windowed.
func (b QueryBuilder) List(plan domain.Plan) (squirrel.SelectBuilder, error) {
	q, err := b.filtered(plan)
	if err != nil {
		return q, err
	}

	// One LEFT JOIN per distinct to-one path, shared between terms.
	joins := make(map[string]string)
	for _, term := range plan.Order {
		prev, key := rootAlias, ""
		for _, rel := range term.Relations {
			key += "." + rel.Name
			alias, ok := joins[key]
			if !ok {
				target := rel.Entity()
				if target == nil {
					return q, apperror.NewMissingContext("relation " + rel.Name)
				}
				alias = fmt.Sprintf("ord_%d", len(joins)+1)
				joins[key] = alias
				q = q.LeftJoin(fmt.Sprintf("%s AS %s ON %s = %s",
					target.Table, alias, qualify(alias, rel.ForeignKey), qualify(prev, rel.LocalKey)))
			}
			prev = alias
		}
		q = q.OrderBy(qualify(prev, term.Column) + " " + string(term.Direction))
	}

	if plan.Page != nil {
		offset, limit, all := plan.Page.Window()
		if !all {
			q = q.Limit(uint64(limit))
			if offset > 0 {
				q = q.Offset(uint64(offset))
			}
		}
	}
	return q, nil
}

// Count counts the rows matching plan.Where.
func (b QueryBuilder) Count(plan domain.Plan) (squirrel.SelectBuilder, error) {
	q, err := b.filtered(plan)
	if err != nil {
		return q, err
	}
	return b.sb.Select("COUNT(*)").FromSelect(q, "sub"), nil
}

// Lower converts p into a squirrel condition over the root alias.
func Lower(p predicate.Predicate) (squirrel.Sqlizer, error) {
	l := &lowering{}
	return l.lower(p, rootAlias)
}

type lowering struct {
	aliases int
}

func (l *lowering) lower(p predicate.Predicate, alias string) (squirrel.Sqlizer, error) {
	switch v := p.(type) {
	case nil:
		return squirrel.And{}, nil
	case predicate.Compare:
		return compare(v, alias)
	case predicate.And:
		out := squirrel.And{}
		for _, c := range v {
			s, err := l.lower(c, alias)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case predicate.Or:
		out := squirrel.Or{}
		for _, c := range v {
			s, err := l.lower(c, alias)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case predicate.Exists:
		return l.exists(v.Relation, v.Where, alias)
	case predicate.Has:
		return l.exists(v.Relation, v.Where, alias)
	}
	return nil, fmt.Errorf("unsupported predicate %T", p)
}

// exists renders a correlated EXISTS subquery over rel. Many-to-many
// relations join the target through the association table.
func (l *lowering) exists(rel *metadata.RelationDef, where predicate.Predicate, outer string) (squirrel.Sqlizer, error) {
	target := rel.Entity()
	if target == nil {
		return nil, apperror.NewMissingContext("relation " + rel.Name)
	}
	l.aliases++
	alias := fmt.Sprintf("t%d", l.aliases)

	var sub squirrel.SelectBuilder
	if rel.Through != nil {
		link := fmt.Sprintf("j%d", l.aliases)
		sub = squirrel.Select("1").
			From(rel.Through.Table + " AS " + link).
			Join(fmt.Sprintf("%s AS %s ON %s = %s",
				target.Table, alias, qualify(alias, rel.ForeignKey), qualify(link, rel.Through.TargetKey))).
			Where(qualify(link, rel.Through.SourceKey) + " = " + qualify(outer, rel.LocalKey))
	} else {
		sub = squirrel.Select("1").
			From(target.Table + " AS " + alias).
			Where(qualify(alias, rel.ForeignKey) + " = " + qualify(outer, rel.LocalKey))
	}

	if !predicate.IsEmpty(where) {
		cond, err := l.lower(where, alias)
		if err != nil {
			return nil, err
		}
		sub = sub.Where(cond)
	}

	sql, args, err := sub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subquery for %s: %w", rel.Name, err)
	}
	return squirrel.Expr("EXISTS ("+sql+")", args...), nil
}

func compare(c predicate.Compare, alias string) (squirrel.Sqlizer, error) {
	col := qualify(alias, c.Field)
	v := sqlValue(c.Value)

	switch c.Op {
	case predicate.Eq:
		return squirrel.Eq{col: v}, nil
	case predicate.NotEq:
		return squirrel.NotEq{col: v}, nil
	case predicate.Gt:
		return squirrel.Gt{col: v}, nil
	case predicate.Gte:
		return squirrel.GtOrEq{col: v}, nil
	case predicate.Lt:
		return squirrel.Lt{col: v}, nil
	case predicate.Lte:
		return squirrel.LtOrEq{col: v}, nil
	case predicate.In:
		return squirrel.Eq{col: list(v)}, nil
	case predicate.NotIn:
		return squirrel.NotEq{col: list(v)}, nil
	case predicate.IsNull:
		return squirrel.Eq{col: nil}, nil
	case predicate.IsNotNull:
		return squirrel.NotEq{col: nil}, nil
	case predicate.IsNot:
		return squirrel.Expr(col+" IS DISTINCT FROM ?", v), nil
	case predicate.Like:
		return squirrel.Like{col: v}, nil
	case predicate.ILike:
		return squirrel.ILike{col: v}, nil
	}
	return nil, apperror.NewInvalidOperator(c.Field, string(c.Op))
}

// sqlValue converts values squirrel would otherwise expand as lists.
func sqlValue(v any) any {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = sqlValue(x[i])
		}
		return out
	}
	return v
}

func list(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{v}
}

func qualify(alias, column string) string {
	return alias + "." + column
}
