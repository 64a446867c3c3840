// Package memory is an in-process storage backend. Predicates are lowered to
// CEL expressions and evaluated against stored rows.
package memory

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"querykit/internal/domain"
	"querykit/internal/metadata"
)

// Store keeps rows per table.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]domain.Row
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string][]domain.Row)}
}

// Insert appends rows to table. A row is a map[string]any or a struct with db tags.
func (s *Store) Insert(table string, rows ...any) error {
	normalized := make([]domain.Row, 0, len(rows))
	for i, r := range rows {
		var raw map[string]any
		switch v := r.(type) {
		case map[string]any:
			raw = v
		default:
			rv := reflect.ValueOf(r)
			if rv.Kind() == reflect.Ptr {
				rv = rv.Elem()
			}
			if rv.Kind() != reflect.Struct {
				return fmt.Errorf("insert into %s: row %d: unsupported type %T", table, i, r)
			}
			raw = metadata.Values(r)
		}

		row := make(domain.Row, len(raw))
		for k, v := range raw {
			row[k] = normalize(v)
		}
		normalized = append(normalized, row)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], normalized...)
	return nil
}

// Rows returns a snapshot of table.
func (s *Store) Rows(table string) []domain.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Row(nil), s.tables[table]...)
}

// Truncate removes all rows of every table.
func (s *Store) Truncate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string][]domain.Row)
}

// related returns the rows rel points to from row.
func (s *Store) related(rel *metadata.RelationDef, row domain.Row) []domain.Row {
	target := rel.Entity()
	if target == nil {
		return nil
	}
	local := row[rel.LocalKey]
	if local == nil {
		return nil
	}

	keys := []any{local}
	if rel.Through != nil {
		keys = keys[:0]
		for _, link := range s.tables[rel.Through.Table] {
			if equal(link[rel.Through.SourceKey], local) {
				keys = append(keys, link[rel.Through.TargetKey])
			}
		}
	}

	var out []domain.Row
	for _, r := range s.tables[target.Table] {
		for _, k := range keys {
			if equal(r[rel.ForeignKey], k) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// hydrate copies row and attaches the relations named in tree, recursively.
// To-many relations become []any, to-one relations a row or nil.
func (s *Store) hydrate(entity *metadata.EntityDef, row domain.Row, tree relTree) domain.Row {
	out := make(domain.Row, len(row)+len(tree))
	for _, col := range entity.ColumnNames() {
		out[col] = nil
	}
	for k, v := range row {
		out[k] = v
	}

	for name, sub := range tree {
		rel, ok := entity.Relation(name)
		if !ok || rel.Entity() == nil {
			continue
		}
		rows := s.related(rel, row)
		if rel.Many {
			list := make([]any, 0, len(rows))
			for _, r := range rows {
				list = append(list, map[string]any(s.hydrate(rel.Entity(), r, sub)))
			}
			out[name] = list
			continue
		}
		if len(rows) == 0 {
			out[name] = nil
			continue
		}
		out[name] = map[string]any(s.hydrate(rel.Entity(), rows[0], sub))
	}
	return out
}

// relTree names the relations to hydrate, nested per relation.
type relTree map[string]relTree

func (t relTree) add(path ...string) relTree {
	cur := t
	for _, name := range path {
		next, ok := cur[name]
		if !ok {
			next = relTree{}
			cur[name] = next
		}
		cur = next
	}
	return cur
}

// normalize maps Go values to the few kinds CEL and the sorter compare.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case uuid.UUID:
		return x.String()
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalize(x[i])
		}
		return out
	}
	return v
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() && a == b
}
