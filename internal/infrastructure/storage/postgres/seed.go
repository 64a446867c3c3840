package postgres

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"querykit/internal/metadata"
)

// Loader writes rows and schema statements. It backs the seed command.
type Loader struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewLoader creates a loader running in transactions of txm.
func NewLoader(txm *TxManager) *Loader {
	return &Loader{txm: txm, builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// Exec sends raw statements, such as DDL, as one batch in one transaction.
func (l *Loader) Exec(ctx context.Context, statements ...string) error {
	return l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		t := getTx(ctx)
		batch := &pgx.Batch{}
		for _, stmt := range statements {
			batch.Queue(stmt)
		}

		results := t.SendBatch(ctx, batch)
		defer results.Close()
		for i := range statements {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Insert writes rows into table with one multi-row INSERT. A row is a
// map[string]any or a struct with db tags; every row must carry the same columns.
func (l *Loader) Insert(ctx context.Context, table string, rows ...any) error {
	if len(rows) == 0 {
		return nil
	}
	q, err := InsertQuery(l.builder, table, rows...)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert into %s: %w", table, err)
	}
	return l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := l.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		return nil
	})
}

// InsertQuery builds a multi-row INSERT. Columns are sorted by name.
func InsertQuery(b squirrel.StatementBuilderType, table string, rows ...any) (squirrel.InsertBuilder, error) {
	values := make([]map[string]any, 0, len(rows))
	for i, r := range rows {
		m, err := rowValues(r)
		if err != nil {
			return squirrel.InsertBuilder{}, fmt.Errorf("insert into %s: row %d: %w", table, i, err)
		}
		values = append(values, m)
	}

	cols := make([]string, 0, len(values[0]))
	for c := range values[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	q := b.Insert(table).Columns(cols...)
	for i, m := range values {
		if len(m) != len(cols) {
			return q, fmt.Errorf("insert into %s: row %d has %d columns, want %d", table, i, len(m), len(cols))
		}
		args := make([]any, len(cols))
		for j, c := range cols {
			v, ok := m[c]
			if !ok {
				return q, fmt.Errorf("insert into %s: row %d lacks column %s", table, i, c)
			}
			args[j] = sqlValue(v)
		}
		q = q.Values(args...)
	}
	return q, nil
}

func rowValues(r any) (map[string]any, error) {
	if m, ok := r.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(r)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported type %T", r)
	}
	return metadata.Values(r), nil
}
