package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club-api/internal/core/config"
	"club-api/internal/core/server"
	"club-api/internal/domain"
	mdw "club-api/internal/transport/http/middleware"
)

// NewAdminEngine 管理端整组要求 admin 角色
func NewAdminEngine(l *zap.Logger, cfg *config.Config, session gin.HandlerFunc) *gin.Engine {
	r := server.NewEngine(cfg.App.IsProduction())
	r.Use(common(l, cfg)...)

	r.GET("/health", health)
	r.GET("/metrics", mdw.MetricsHandler())

	admin := r.Group("/admin/v1")
	admin.Use(session, mdw.RequireAnyRole(domain.RoleAdmin))
	MountAllAdmin(admin)
	return r
}
