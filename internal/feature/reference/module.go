package reference

import (
	"github.com/gin-gonic/gin"

	"club-api/internal/feature/kit"
)

// Module 角色 / 分类字典，进程内只读
type Module struct {
	kit.Deps
}

func (m *Module) Priority() int { return 20 }

func (m *Module) MountAPI(api *gin.RouterGroup) {
	ez := m.Authed(api)
	ez.GET("/roles", func(c *gin.Context) (any, error) {
		return m.Ref.Roles(), nil
	})
	ez.GET("/categories", func(c *gin.Context) (any, error) {
		return m.Ref.Categories(), nil
	})
}
