// Package tx declares the transaction contract the storage backends run
// their statements under.
package tx

import "context"

// Func is a unit of work. The context it receives carries the transaction.
type Func func(ctx context.Context) error

// Manager runs work inside a read-write transaction. The transaction commits
// when fn returns nil and rolls back otherwise; calls nested inside fn join
// the outer transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn Func) error
}

// ReadOnlyManager adds read-only transactions, used by list and count so
// both statements see one snapshot.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn Func) error
}
