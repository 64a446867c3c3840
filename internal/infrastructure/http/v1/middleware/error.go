package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"querykit/internal/core/apperror"
	"querykit/pkg/logger"
)

// ErrorHandler turns the last error registered on the gin context into the
// JSON error body. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": gin.H{"request_id": c.GetString("request_id")},
			})
			return
		}

		if appErr.Err != nil {
			logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		} else if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "request error", "code", appErr.Code, "message", appErr.Message)
		}

		c.JSON(appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}
}
