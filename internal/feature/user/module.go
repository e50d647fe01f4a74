package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"club-api/internal/core/cache"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	"club-api/internal/repo"
	httpez "club-api/internal/transport/http/ez"
)

type Module struct {
	kit.Deps
	Svc *Service
}

func (m *Module) Priority() int { return 30 }

// 用户姓名/角色出现在球队教练、文章作者、出勤名单里
var userWrites = []string{cache.PrefixUsers, cache.PrefixTeams, cache.PrefixArticles, cache.PrefixTrainings}

type listQ struct {
	kit.Page
	Q          string `form:"q"`
	RoleID     uint   `form:"roleId"`
	CategoryID *uint  `form:"categoryId"`
	Active     *bool  `form:"active"`
}

type listOut struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

func (q listQ) filter() repo.UserFilter {
	return repo.UserFilter{Q: q.Q, RoleID: q.RoleID, CategoryID: q.CategoryID, Active: q.Active}
}

func (m *Module) list(c *gin.Context, in *listQ) (listOut, error) {
	offset, limit := in.Normalize()
	items, total, err := m.Svc.List(c, in.filter(), offset, limit)
	return listOut{Total: total, Items: items}, err
}

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	ez := m.Authed(api)

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.User, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.Get(c, uid)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[ProfileInput, *domain.User]{
		Method:     http.MethodPut,
		Path:       "/users/me",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Invalidate: userWrites,
		Handler: func(c *gin.Context, _ *gorm.DB, in *ProfileInput) (*domain.User, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.UpdateMe(c, uid, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Cache:  cache.PrefixUsers,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (listOut, error) {
			return m.list(c, in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.User, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Get(c, id)
		},
	})

	byRole := func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.User, error) {
		return m.Svc.ByRole(c, c.Param("roleName"), c.Param("categoryName"))
	}
	for _, p := range []string{"/users/roles/:roleName", "/users/roles/:roleName/:categoryName"} {
		httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.User]{
			Method:  http.MethodGet,
			Path:    p,
			Binder:  httpez.BindNone,
			Auth:    true,
			Cache:   cache.PrefixUsers,
			Handler: byRole,
		})
	}
}

// MountAdmin 分组已带 Session + 管理员校验
func (m *Module) MountAdmin(admin *gin.RouterGroup) {
	db := m.DB
	ez := m.Public(admin)

	httpez.RegisterAction(ez, db, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (listOut, error) {
			return m.list(c, in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[AdminInput, *domain.User]{
		Method:     http.MethodPut,
		Path:       "/users/:id",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Invalidate: userWrites,
		Handler: func(c *gin.Context, _ *gorm.DB, in *AdminInput) (*domain.User, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.AdminUpdate(c, id, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodPost,
		Path:       "/users/:id/deactivate",
		Binder:     httpez.BindNone,
		Auth:       true,
		Invalidate: userWrites,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := m.Svc.Deactivate(c, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "isActive": false}, nil
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/users/:id",
		Binder:     httpez.BindNone,
		Auth:       true,
		Invalidate: userWrites,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := m.Svc.Delete(c, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
