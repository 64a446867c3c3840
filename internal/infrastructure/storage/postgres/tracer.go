package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"querykit/pkg/logger"
)

// queryTracer logs statements above the slow threshold and records each
// statement as an event on the active span.
type queryTracer struct {
	slow time.Duration
}

var _ pgx.QueryTracer = (*queryTracer)(nil)

type queryStartKey struct{}

type queryStart struct {
	sql  string
	args int
	at   time.Time
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, args: len(data.Args), at: time.Now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	took := time.Since(start.at)

	span := trace.SpanFromContext(ctx)
	span.AddEvent("db.query", trace.WithAttributes(
		attribute.String("db.statement", start.sql),
		attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()),
		attribute.Int64("db.duration_us", took.Microseconds()),
	))

	switch {
	case data.Err != nil:
		span.SetStatus(codes.Error, data.Err.Error())
		logger.Debug(ctx, "query failed", "sql", start.sql, "args", start.args, "took", took, "error", data.Err)
	case t.slow > 0 && took >= t.slow:
		logger.Warn(ctx, "slow query", "sql", start.sql, "args", start.args, "took", took)
	}
}
