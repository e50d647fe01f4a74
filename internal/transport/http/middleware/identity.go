package middleware

import (
	"github.com/gin-gonic/gin"

	"club-api/internal/core/auth"
	resp "club-api/internal/transport/http/response"
)

const keyIdentity = "identity"

func SetIdentity(c *gin.Context, id auth.Identity) { c.Set(keyIdentity, id) }

func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(keyIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && id.UserID != 0
}

// MustIdentity 只在 Session 之后使用
func MustIdentity(c *gin.Context) auth.Identity {
	id, _ := IdentityFrom(c)
	return id
}

// RequireAnyRole 任一 roleId 命中即放行；只看角色，不看分类
func RequireAnyRole(allowed ...uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			resp.Abort(c, resp.CodeUnauthorized, "authentication required")
			return
		}
		if !id.HasAnyRole(allowed...) {
			resp.Abort(c, resp.CodeForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}
