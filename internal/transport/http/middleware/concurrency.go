package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "club-api/internal/transport/http/response"
)

// ConcurrencyLimit 同时处理的请求数上限；排队超过 wait 直接 503
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		err := sem.Acquire(ctx, 1)
		cancel()
		if err != nil {
			resp.Abort(c, resp.CodeUnavailable, "server busy")
			return
		}
		httpInFlight.Inc()
		defer func() {
			httpInFlight.Dec()
			sem.Release(1)
		}()
		c.Next()
	}
}
