// Package domain ties filter, ordering and pagination compilation to the
// storage backends.
package domain

import (
	"context"
	"fmt"

	"querykit/internal/domain/filter"
	"querykit/internal/domain/ordering"
	"querykit/internal/domain/pagination"
	"querykit/internal/domain/predicate"
	"querykit/internal/metadata"
)

// Row is one result record keyed by column name.
type Row = map[string]any

// ListQuery is a parsed list request.
type ListQuery struct {
	// Filter is the packed filter; nil means no filtering.
	Filter *filter.Instance

	// OrderBy is the raw order_by value (e.g., "name,-created_at")
	OrderBy string

	// Page defaults to pagination.DefaultPage when nil.
	Page pagination.Params
}

// Resource binds a list endpoint to its entity and filter schema.
type Resource struct {
	Path    string
	Entity  string
	Filters *filter.Schema
	// DefaultOrder applies when the request has no order_by.
	DefaultOrder string
}

// Plan is a compiled, backend-neutral list query.
type Plan struct {
	Entity *metadata.EntityDef
	Where  predicate.Predicate
	Order  []ordering.Term
	Page   pagination.Params
}

// Prepare compiles q against entity.
func Prepare(entity *metadata.EntityDef, q ListQuery) (Plan, error) {
	where, err := predicate.Compile(entity, q.Filter)
	if err != nil {
		return Plan{}, err
	}
	order, err := ordering.Compile(entity, q.OrderBy)
	if err != nil {
		return Plan{}, err
	}

	page := q.Page
	if page == nil {
		page = pagination.DefaultPage()
	}
	if err := page.Validate(); err != nil {
		return Plan{}, err
	}

	return Plan{Entity: entity, Where: where, Order: order, Page: page}, nil
}

// String renders the plan for logs.
func (p Plan) String() string {
	offset, limit, all := p.Page.Window()
	window := fmt.Sprintf("offset=%d limit=%d", offset, limit)
	if all {
		window = "all"
	}
	return fmt.Sprintf("%s WHERE %s ORDER BY [%s] %s",
		p.Entity.Name, predicate.String(p.Where), ordering.String(p.Order), window)
}

// --- Repository Interfaces ---

// Repository executes plans against a storage backend.
type Repository interface {
	// List returns the window selected by plan.Page and the total match count.
	List(ctx context.Context, plan Plan) (pagination.Page[Row], error)

	// Count returns the number of rows matching plan.Where.
	Count(ctx context.Context, plan Plan) (int, error)
}

// --- Hooks ---

// HookEvent represents a list lifecycle point.
type HookEvent string

const (
	BeforeList HookEvent = "before_list"
	AfterList  HookEvent = "after_list"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, value T) error

// HookRegistry stores lifecycle hooks.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, value T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, value); err != nil {
			return err
		}
	}
	return nil
}
