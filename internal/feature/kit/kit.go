package kit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/core/cache"
	"club-api/internal/domain"
	"club-api/internal/repo"
	httpez "club-api/internal/transport/http/ez"
	mdw "club-api/internal/transport/http/middleware"
)

// Deps 各功能模块共用的依赖
type Deps struct {
	DB      *gorm.DB
	Cache   *cache.Cache
	Log     *zap.Logger
	Session gin.HandlerFunc
	Ref     *repo.Reference
	Members *repo.Memberships
}

func (d Deps) Logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// Public 不需要登录
func (d Deps) Public(g *gin.RouterGroup) httpez.EZ {
	return httpez.New(g).WithCache(d.Cache).WithLogger(d.Logger())
}

// Authed 挂 Session 的子分组
func (d Deps) Authed(g *gin.RouterGroup) httpez.EZ {
	return httpez.New(g.Group("", d.Session)).WithCache(d.Cache).WithLogger(d.Logger())
}

// Caller 当前登录用户
func Caller(c *gin.Context) (uint, []uint) {
	id := mdw.MustIdentity(c)
	return id.UserID, id.CategoryIDs()
}

// Scope 判断调用者能否操作某分类的数据；nil 表示不限
type Scope func(categoryID uint) bool

// Check Forbidden 或 nil
func (s Scope) Check(categoryID uint) error {
	if s == nil || s(categoryID) {
		return nil
	}
	return apperr.Forbidden("category is outside your scope")
}

// ManagerScope 管理员不限；其他人需在该分类持有 roles 中任一角色
func ManagerScope(c *gin.Context, roles ...uint) Scope {
	id := mdw.MustIdentity(c)
	if id.HasAnyRole(domain.RoleAdmin) {
		return nil
	}
	return func(categoryID uint) bool {
		for _, r := range id.Roles {
			if r.CategoryID != nil && *r.CategoryID == categoryID && slices.Contains(roles, r.RoleID) {
				return true
			}
		}
		return false
	}
}

// Page 分页参数
type Page struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

func (p Page) Normalize() (int, int) {
	limit := p.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
