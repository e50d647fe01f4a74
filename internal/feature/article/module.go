package article

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-api/internal/core/cache"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	httpez "club-api/internal/transport/http/ez"
	mdw "club-api/internal/transport/http/middleware"
)

type Module struct {
	kit.Deps
	Svc *Service
}

func (m *Module) Priority() int { return 70 }

var writers = []uint{domain.RoleCoach, domain.RoleMember, domain.RoleAdmin}

func isWriter(c *gin.Context) bool { return mdw.MustIdentity(c).HasAnyRole(writers...) }

// 缓存键区分作者视图与只读视图
func writerVary(c *gin.Context) string {
	if isWriter(c) {
		return "w"
	}
	return "r"
}

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	ez := m.Authed(api)
	inv := []string{cache.PrefixArticles}

	httpez.RegisterAction(ez, db, httpez.Action[CreateInput, *domain.Article]{
		Method:     http.MethodPost,
		Path:       "/articles",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      writers,
		UseTx:      true,
		Status:     http.StatusCreated,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, in *CreateInput) (*domain.Article, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.Create(tx, uid, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[UpdateInput, *domain.Article]{
		Method:     http.MethodPut,
		Path:       "/articles/:id",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      writers,
		UseTx:      true,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, in *UpdateInput) (*domain.Article, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Update(tx, id, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/articles/:id",
		Binder:     httpez.BindNone,
		Auth:       true,
		Roles:      writers,
		Invalidate: inv,
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

	httpez.RegisterAction(ez, db, httpez.Action[Filter, []domain.Article]{
		Method:    http.MethodGet,
		Path:      "/articles",
		Binder:    httpez.BindQuery,
		Auth:      true,
		Cache:     cache.PrefixArticles,
		CacheVary: writerVary,
		Handler: func(c *gin.Context, tx *gorm.DB, in *Filter) ([]domain.Article, error) {
			return m.Svc.List(tx, *in, isWriter(c))
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.Article]{
		Method: http.MethodGet,
		Path:   "/articles/category",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.Article, error) {
			_, cats := kit.Caller(c)
			return m.Svc.ByCategories(tx, cats, isWriter(c))
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *domain.Article]{
		Method: http.MethodGet,
		Path:   "/articles/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Article, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Get(tx, id, isWriter(c))
		},
	})

	httpez.POSTFILES(ez.Gate(writers...), "/articles/:id/cover", "cover", func(c *gin.Context, files []*multipart.FileHeader) (any, error) {
		id, err := httpez.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		a, err := m.Svc.UploadCover(c, id, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
		if err != nil {
			return nil, err
		}
		if err := m.Cache.InvalidatePrefix(c, cache.PrefixArticles); err != nil {
			m.Logger().Warn("cache invalidate failed", zap.Error(err))
		}
		return a, nil
	})
}
