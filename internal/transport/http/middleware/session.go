package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club-api/internal/core/apperr"
	"club-api/internal/core/auth"
	resp "club-api/internal/transport/http/response"
)

// Refresher 用刷新令牌换一对新令牌（轮换）
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, auth.Identity, error)
}

type Session struct {
	JWT       *auth.JWTer
	Refresher Refresher
	Cookies   Cookies
	Log       *zap.Logger
}

// Handler 解析身份；访问令牌过期（或缺失）且带刷新令牌时静默续期
func (s *Session) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cr := ResolveCredentials(c)
		if cr.Empty() {
			resp.Abort(c, resp.CodeUnauthorized, "authentication required")
			return
		}

		if cr.Access != "" {
			claims, err := s.JWT.Parse(auth.KindAccess, cr.Access)
			switch {
			case err == nil:
				SetIdentity(c, auth.IdentityFromClaims(claims))
				c.Next()
				return
			case !errors.Is(err, auth.ErrTokenExpired):
				resp.Abort(c, resp.CodeUnauthorized, "invalid token")
				return
			case cr.Refresh == "":
				resp.Abort(c, resp.CodeUnauthorized, "token expired")
				return
			}
		}

		pair, id, err := s.Refresher.Refresh(c, cr.Refresh)
		if err != nil {
			sessionRefresh.WithLabelValues("rejected").Inc()
			if !apperr.Is(err, apperr.KindUnauthorized) && s.Log != nil {
				s.Log.Error("session refresh failed", zap.Error(err))
			}
			msg := "session expired, please log in again"
			if !apperr.Is(err, apperr.KindUnauthorized) {
				msg = "invalid token"
			}
			resp.Abort(c, resp.CodeUnauthorized, msg)
			return
		}
		sessionRefresh.WithLabelValues("ok").Inc()
		s.Cookies.EmitTokens(c, cr.Carrier, pair)
		SetIdentity(c, id)
		c.Next()
	}
}
