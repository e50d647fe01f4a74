package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"club-api/internal/core/config"
	"club-api/internal/core/server"
	mdw "club-api/internal/transport/http/middleware"
)

// 上传封面最大 5MB，留点余量给 multipart 头
const maxBody = 6 << 20

// 走对象存储的接口放宽超时
var slowRoutes = map[string]time.Duration{
	"/api/v1/articles/:id/cover": time.Minute,
}

func common(l *zap.Logger, cfg *config.Config) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		mdw.ConcurrencyLimit(300, 2*time.Second),
		mdw.MaxBodyBytes(maxBody),
		mdw.Timeout(10*time.Second, slowRoutes),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	}
}

func health(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) }

// NewAPIEngine 模块须先 Register
func NewAPIEngine(l *zap.Logger, cfg *config.Config) *gin.Engine {
	r := server.NewEngine(cfg.App.IsProduction())
	r.Use(server.CORS(cfg.CORS.AllowedOrigins, mdw.HeaderNewAccess, mdw.HeaderNewRefresh))
	r.Use(common(l, cfg)...)

	r.GET("/health", health)
	r.GET("/metrics", mdw.MetricsHandler())

	MountAllAPI(r.Group("/api/v1"))
	return r
}
