package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// query 里出现这些键时只记 ****（激活 / 重置链接会带 token）
var sensitiveQuery = map[string]struct{}{
	"password": {}, "token": {}, "refreshtoken": {}, "authorization": {}, "secret": {},
}

// 探活和抓取指标不记
var quietPaths = map[string]struct{}{"/health": {}, "/metrics": {}}

func maskQuery(q url.Values) url.Values {
	if len(q) == 0 {
		return nil
	}
	out := make(url.Values, len(q))
	for k, v := range q {
		if _, ok := sensitiveQuery[strings.ToLower(k)]; ok {
			out[k] = []string{"****"}
			continue
		}
		out[k] = v
	}
	return out
}

// AccessLog 5xx 记 Error，4xx 记 Warn；已登录时带上 uid
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := quietPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("rid", RequestIDFrom(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
		}
		if q := maskQuery(c.Request.URL.Query()); q != nil {
			fields = append(fields, zap.Any("query", q))
		}
		if id, ok := IdentityFrom(c); ok {
			fields = append(fields, zap.Uint("uid", id.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			l.Error("http", fields...)
		case status >= 400:
			l.Warn("http", fields...)
		default:
			l.Info("http", fields...)
		}
	}
}
