package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	keyRequestID    = "rid"
)

// RequestID 上游传来的 ID 必须是 uuid，否则重新生成，防止日志注入
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		c.Header(HeaderRequestID, rid)
		c.Set(keyRequestID, rid)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string { return c.GetString(keyRequestID) }
