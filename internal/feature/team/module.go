package team

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"club-api/internal/core/cache"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	httpez "club-api/internal/transport/http/ez"
)

type Module struct {
	kit.Deps
	Svc *Service
}

func (m *Module) Priority() int { return 50 }

var managers = []uint{domain.RoleMember, domain.RoleAdmin}

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	ez := m.Authed(api)
	inv := []string{cache.PrefixTeams}

	httpez.RegisterAction(ez, db, httpez.Action[Input, *domain.Team]{
		Method:     http.MethodPost,
		Path:       "/teams",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      managers,
		UseTx:      true,
		Status:     http.StatusCreated,
		Invalidate: inv,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *Input) (*domain.Team, error) {
			return m.Svc.Create(tx, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[Input, *domain.Team]{
		Method:     http.MethodPut,
		Path:       "/teams/:id",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      managers,
		UseTx:      true,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, in *Input) (*domain.Team, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Update(tx, id, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/teams/:id",
		Binder:     httpez.BindNone,
		Auth:       true,
		Roles:      managers,
		UseTx:      true,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := m.Svc.Delete(tx, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[Filter, []domain.Team]{
		Method: http.MethodGet,
		Path:   "/teams",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  managers,
		Cache:  cache.PrefixTeams,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *Filter) ([]domain.Team, error) {
			return m.Svc.List(tx, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.Team]{
		Method: http.MethodGet,
		Path:   "/teams/mine",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.Team, error) {
			_, cats := kit.Caller(c)
			return m.Svc.Mine(tx, cats)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *domain.Team]{
		Method: http.MethodGet,
		Path:   "/teams/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Team, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Get(tx, id)
		},
	})
}
