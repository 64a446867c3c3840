// Package context carries request-scoped identifiers from the HTTP layer
// down to storage so every log line of one request can be correlated.
package context

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Request identifies one API call and, once resolved, the resource it lists.
type Request struct {
	ID      string
	TraceID string

	Entity string
	Schema string
}

type requestKey struct{}

// WithRequest stores r in ctx.
func WithRequest(ctx context.Context, r *Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFrom returns the request stored in ctx, or nil.
func RequestFrom(ctx context.Context) *Request {
	r, _ := ctx.Value(requestKey{}).(*Request)
	return r
}

// WithQuery records the entity and filter schema being served. The stored
// request is copied, never mutated.
func WithQuery(ctx context.Context, entity, schema string) context.Context {
	var r Request
	if cur := RequestFrom(ctx); cur != nil {
		r = *cur
	}
	r.Entity, r.Schema = entity, schema
	return WithRequest(ctx, &r)
}

// TraceID returns the id of the active span when a tracer provider is
// installed, else the id assigned to the request.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if r := RequestFrom(ctx); r != nil {
		return r.TraceID
	}
	return ""
}

// Fields returns the non-empty identifiers as logger key/value pairs.
func (r *Request) Fields() []any {
	if r == nil {
		return nil
	}
	var kv []any
	for _, f := range [...]struct{ k, v string }{
		{"request_id", r.ID},
		{"trace_id", r.TraceID},
		{"entity", r.Entity},
		{"filter_schema", r.Schema},
	} {
		if f.v != "" {
			kv = append(kv, f.k, f.v)
		}
	}
	return kv
}
