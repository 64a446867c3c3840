// Package middleware provides the gin middleware of the query API.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"querykit/internal/core/apperror"
	"querykit/pkg/logger"
)

// Recovery converts a panic into an internal error on the gin context. It
// must be registered after ErrorHandler, which renders that error.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", rec,
					"route", c.FullPath(),
					"stack", string(debug.Stack()),
				)

				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
					WithDetail("request_id", c.GetString("request_id")))
				c.Abort()
			}
		}()
		c.Next()
	}
}
