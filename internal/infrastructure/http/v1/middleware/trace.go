package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "querykit/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

var tracer = otel.Tracer("querykit/http")

// Trace opens a server span for the request and assigns its ids. Incoming
// X-Request-ID and X-Trace-ID headers are kept; the trace id of a recording
// span wins over both.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.route", route)),
		)
		defer span.End()

		req := &appctx.Request{
			ID:      headerOr(c, HeaderRequestID),
			TraceID: headerOr(c, HeaderTraceID),
		}
		ctx = appctx.WithRequest(ctx, req)
		req.TraceID = appctx.TraceID(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Set("trace_id", req.TraceID)
		c.Set("request_id", req.ID)
		c.Header(HeaderRequestID, req.ID)
		c.Header(HeaderTraceID, req.TraceID)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

func headerOr(c *gin.Context, name string) string {
	if v := c.GetHeader(name); v != "" {
		return v
	}
	return uuid.NewString()
}
