package ez

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/core/cache"
	"club-api/internal/core/database"
	mdw "club-api/internal/transport/http/middleware"
	resp "club-api/internal/transport/http/response"
)

// EZ 路由分组的轻封装，附带可选缓存与日志
type EZ struct {
	g     *gin.RouterGroup
	cache *cache.Cache
	log   *zap.Logger
}

func New(g *gin.RouterGroup) EZ {
	registerValidators()
	return EZ{g: g, log: zap.NewNop()}
}

func (e EZ) WithCache(c *cache.Cache) EZ { e.cache = c; return e }
func (e EZ) WithLogger(l *zap.Logger) EZ {
	if l != nil {
		e.log = l
	}
	return e
}

// Gate 子分组，只放行持有任一角色的调用者
func (e EZ) Gate(roles ...uint) EZ {
	e.g = e.g.Group("", mdw.RequireAnyRole(roles...))
	return e
}

func (e EZ) Group() *gin.RouterGroup { return e.g }

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		if err != nil {
			e.fail(c, err)
			return
		}
		resp.Write(c, http.StatusOK, data)
	})
}

// 处理 multipart/form-data 多文件上传
func POSTFILES(e EZ, path string, fieldName string, h func(c *gin.Context, files []*multipart.FileHeader) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			resp.Abort(c, resp.CodeBadRequest, "invalid multipart form")
			return
		}
		files := form.File[fieldName]
		if len(files) == 0 {
			resp.Abort(c, resp.CodeBadRequest, "no files uploaded")
			return
		}
		data, err := h(c, files)
		if err != nil {
			e.fail(c, err)
			return
		}
		resp.Write(c, http.StatusOK, data)
	})
}

// fail 统一错误映射；未知错误只记日志，对外固定文案
func (e EZ) fail(c *gin.Context, err error) {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		if ae.Kind == apperr.KindInternal {
			e.log.Error("action failed", zap.String("path", c.FullPath()), zap.String("rid", mdw.RequestIDFrom(c)), zap.Error(err))
		}
		resp.Abort(c, ae.Status(), ae.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		resp.Abort(c, resp.CodeNotFound, "not found")
	case database.IsDuplicate(err):
		resp.Abort(c, resp.CodeConflict, "already exists")
	default:
		e.log.Error("unhandled error", zap.String("path", c.FullPath()), zap.String("rid", mdw.RequestIDFrom(c)), zap.Error(err))
		resp.Abort(c, resp.CodeServerError, "internal error")
	}
}
