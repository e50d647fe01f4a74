package convocation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	httpez "club-api/internal/transport/http/ez"
	mdw "club-api/internal/transport/http/middleware"
)

type Module struct {
	kit.Deps
	Svc *Service
}

func (m *Module) Priority() int { return 60 }

var coaches = []uint{domain.RoleCoach, domain.RoleAdmin}

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	ez := m.Authed(api)

	httpez.RegisterAction(ez, db, httpez.Action[Input, *domain.Convocation]{
		Method: http.MethodPost,
		Path:   "/convocations",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  coaches,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *Input) (*domain.Convocation, error) {
			return m.Svc.Create(tx, *in, kit.ManagerScope(c, domain.RoleCoach))
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[Input, *domain.Convocation]{
		Method: http.MethodPut,
		Path:   "/convocations/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  coaches,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *Input) (*domain.Convocation, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Update(tx, id, *in, kit.ManagerScope(c, domain.RoleCoach))
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/convocations/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  coaches,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := m.Svc.Delete(tx, id, kit.ManagerScope(c, domain.RoleCoach)); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.Convocation]{
		Method: http.MethodGet,
		Path:   "/convocations",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []uint{domain.RoleAdmin},
		Handler: func(_ *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.Convocation, error) {
			return m.Svc.All(tx)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.Convocation]{
		Method: http.MethodGet,
		Path:   "/convocations/category",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  coaches,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.Convocation, error) {
			if mdw.MustIdentity(c).HasAnyRole(domain.RoleAdmin) {
				return m.Svc.All(tx)
			}
			_, cats := kit.Caller(c)
			return m.Svc.ByCategories(tx, cats)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.Convocation]{
		Method: http.MethodGet,
		Path:   "/convocations/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.Convocation, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.ForPlayer(tx, uid)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *domain.Convocation]{
		Method: http.MethodGet,
		Path:   "/convocations/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  coaches,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Convocation, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Get(tx, id, kit.ManagerScope(c, domain.RoleCoach))
		},
	})
}
