package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"querykit/internal/core/apperror"
	"querykit/internal/domain"
	"querykit/internal/domain/pagination"
	"querykit/pkg/logger"
)

// ListRepo implements domain.Repository on PostgreSQL.
type ListRepo struct {
	txm     *TxManager
	builder QueryBuilder
}

var _ domain.Repository = (*ListRepo)(nil)

// NewListRepo creates a repository running its queries through txm.
func NewListRepo(txm *TxManager) *ListRepo {
	return &ListRepo{txm: txm, builder: NewQueryBuilder()}
}

// List counts the matching rows and reads one window of them in a single
// read-only transaction.
func (r *ListRepo) List(ctx context.Context, plan domain.Plan) (pagination.Page[domain.Row], error) {
	if plan.Page == nil {
		plan.Page = pagination.DefaultPage()
	}

	countSQL, countArgs, err := r.build(ctx, r.builder.Count, plan)
	if err != nil {
		return pagination.Page[domain.Row]{}, err
	}
	listSQL, listArgs, err := r.build(ctx, r.builder.List, plan)
	if err != nil {
		return pagination.Page[domain.Row]{}, err
	}

	ctx, span := tracer.Start(ctx, "list", trace.WithAttributes(
		attribute.String("db.table", plan.Entity.Table),
	))
	defer span.End()

	var (
		total int
		rows  []map[string]any
	)
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		querier := r.txm.GetQuerier(ctx)
		if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if total == 0 {
			return nil
		}
		if err := pgxscan.Select(ctx, querier, &rows, listSQL, listArgs...); err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "list query failed", "sql", listSQL, "error", err)
		return pagination.Page[domain.Row]{}, apperror.NewDatabase(err)
	}

	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return pagination.Paginate(rows, total, plan.Page), nil
}

// Count returns the number of rows matching plan.Where.
func (r *ListRepo) Count(ctx context.Context, plan domain.Plan) (int, error) {
	countSQL, countArgs, err := r.build(ctx, r.builder.Count, plan)
	if err != nil {
		return 0, err
	}

	ctx, span := tracer.Start(ctx, "count", trace.WithAttributes(
		attribute.String("db.table", plan.Entity.Table),
	))
	defer span.End()

	var total int
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		return r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total)
	})
	if err != nil {
		span.RecordError(err)
		return 0, apperror.NewDatabase(err)
	}
	return total, nil
}

func (r *ListRepo) build(ctx context.Context, stmt func(domain.Plan) (squirrel.SelectBuilder, error), plan domain.Plan) (string, []any, error) {
	q, err := stmt(plan)
	if err != nil {
		return "", nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("build query: %w", err))
	}
	logger.Debug(ctx, "built query", "sql", sql, "args", len(args))
	return sql, args, nil
}
