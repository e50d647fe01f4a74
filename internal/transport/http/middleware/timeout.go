package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	resp "club-api/internal/transport/http/response"
)

// Timeout 给请求 context 加截止时间；slow 里按路由模板放宽（封面上传之类）
func Timeout(d time.Duration, slow map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := d
		if v, ok := slow[c.FullPath()]; ok {
			limit = v
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), limit)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			resp.Abort(c, resp.CodeTimeout, "request timed out")
		}
	}
}
