package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver records finished requests.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, took time.Duration)
}

// Metrics reports every request to obs under its route template, so
// /api/v1/schemas/:name is one series whatever the name.
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
