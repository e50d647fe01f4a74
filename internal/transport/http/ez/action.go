package ez

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-api/internal/core/cache"
	mdw "club-api/internal/transport/http/middleware"
	resp "club-api/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.PostForm 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string // "GET" | "POST" | "PUT" | "DELETE"
	Path   string // 例："/auth/login"、"/trainings/:id/attendance"
	Binder Binder
	Auth   bool   // 要求已登录
	Roles  []uint // 限定角色（任一即可）
	UseTx  bool   // 是否包事务
	Status int    // 成功状态码，默认 200

	// Cache 非空时 GET 结果按 前缀+URL 缓存；CacheVary 追加到键上
	Cache     string
	CacheVary func(c *gin.Context) string
	// Invalidate 成功（事务已提交）后清掉的缓存前缀
	Invalidate []string

	Handler func(c *gin.Context, db *gorm.DB, in *I) (O, error)
}

// 在当前 EZ 下注册动作接口（传入 *gorm.DB）
func RegisterAction[I any, O any](e EZ, db *gorm.DB, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth {
			if _, ok := mdw.IdentityFrom(c); !ok {
				resp.Abort(c, resp.CodeUnauthorized, "authentication required")
				return
			}
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			resp.Abort(c, resp.CodeBadRequest, bindMessage(bindErr))
			return
		}

		run := func(tx *gorm.DB) (O, error) { return a.Handler(c, tx, &in) }
		var out O
		var err error
		switch {
		case a.UseTx:
			err = db.WithContext(c).Transaction(func(tx *gorm.DB) error {
				o, e := run(tx)
				out = o
				return e
			})
		case a.Cache != "" && e.cache.Enabled():
			key := a.Cache + c.Request.URL.RequestURI()
			if a.CacheVary != nil {
				key += "#" + a.CacheVary(c)
			}
			out, err = cache.GetOrLoadJSON(e.cache, c, key, 0, func(context.Context) (O, error) {
				return run(db.WithContext(c))
			})
		default:
			out, err = run(db.WithContext(c))
		}
		if err != nil {
			e.fail(c, err)
			return
		}

		if len(a.Invalidate) > 0 {
			if ierr := e.cache.InvalidatePrefix(c, a.Invalidate...); ierr != nil {
				e.log.Warn("cache invalidate failed", zap.Strings("prefixes", a.Invalidate), zap.Error(ierr))
			}
		}
		resp.Write(c, a.Status, out)
	}

	handlers := []gin.HandlerFunc{}
	if len(a.Roles) > 0 {
		handlers = append(handlers, mdw.RequireAnyRole(a.Roles...))
	}
	handlers = append(handlers, h)

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}
