package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/core/cache"
	coreauth "club-api/internal/core/auth"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	httpez "club-api/internal/transport/http/ez"
	mdw "club-api/internal/transport/http/middleware"
)

type Module struct {
	kit.Deps
	Svc     *Service
	Cookies mdw.Cookies
	// Limiter 登录 / 忘记密码按 IP 限流
	Limiter gin.HandlerFunc
}

func (m *Module) Priority() int { return 10 }

type userView struct {
	domain.UserSummary
	IsActive bool                 `json:"isActive"`
	Roles    []coreauth.RoleClaim `json:"roles"`
}

type sessionOut struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	User         *userView `json:"user,omitempty"`
}

func (m *Module) limited(g *gin.RouterGroup) *gin.RouterGroup {
	if m.Limiter == nil {
		return g
	}
	return g.Group("", m.Limiter)
}

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	public := m.Public(api)
	throttled := m.Public(m.limited(api))
	authed := m.Authed(api)

	type signupOut struct {
		User            domain.UserSummary `json:"user"`
		ActivationToken string             `json:"activationToken"`
	}
	httpez.RegisterAction(authed, db, httpez.Action[RegisterInput, signupOut]{
		Method:     http.MethodPost,
		Path:       "/auth/signup",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      []uint{domain.RoleAdmin},
		Status:     http.StatusCreated,
		Invalidate: []string{cache.PrefixUsers},
		Handler: func(c *gin.Context, _ *gorm.DB, in *RegisterInput) (signupOut, error) {
			u, tok, err := m.Svc.Register(c, *in)
			if err != nil {
				return signupOut{}, err
			}
			return signupOut{User: u.Summary(), ActivationToken: tok}, nil
		},
	})

	httpez.RegisterAction(authed, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/signup/:userId/resend",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []uint{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "userId")
			if err != nil {
				return nil, err
			}
			tok, err := m.Svc.ResendActivation(c, id)
			if err != nil {
				return nil, err
			}
			return gin.H{"activationToken": tok}, nil
		},
	})

	httpez.RegisterAction(public, db, httpez.Action[PasswordInput, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/confirm",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *PasswordInput) (gin.H, error) {
			if err := m.Svc.Activate(c, *in); err != nil {
				return nil, err
			}
			return gin.H{"activated": true}, nil
		},
	})

	type loginIn struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(throttled, db, httpez.Action[loginIn, sessionOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, tx *gorm.DB, in *loginIn) (sessionOut, error) {
			pair, u, err := m.Svc.Login(c, in.Email, in.Password)
			if err != nil {
				return sessionOut{}, err
			}
			m.Cookies.SetTokens(c, pair)
			roles, err := RoleClaims(c, tx, u.ID)
			if err != nil {
				return sessionOut{}, err
			}
			return sessionOut{
				Token:        pair.Access,
				RefreshToken: pair.Refresh,
				User:         &userView{UserSummary: u.Summary(), IsActive: u.IsActive, Roles: roles},
			}, nil
		},
	})

	type refreshIn struct {
		RefreshToken string `json:"refreshToken"`
	}
	httpez.RegisterAction(public, db, httpez.Action[refreshIn, sessionOut]{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, in *refreshIn) (sessionOut, error) {
			cr := mdw.ResolveCredentials(c)
			if cr.Refresh == "" && c.Request.ContentLength != 0 {
				if err := c.ShouldBindJSON(in); err != nil {
					return sessionOut{}, apperr.Validation("malformed request body")
				}
				cr.Refresh = strings.TrimSpace(in.RefreshToken)
			}
			if cr.Refresh == "" {
				return sessionOut{}, apperr.Unauthorized("refresh token required")
			}
			pair, _, err := m.Svc.Refresh(c, cr.Refresh)
			if err != nil {
				return sessionOut{}, err
			}
			if cr.Carrier == mdw.CarrierCookie {
				m.Cookies.SetTokens(c, pair)
			}
			return sessionOut{Token: pair.Access, RefreshToken: pair.Refresh}, nil
		},
	})

	httpez.RegisterAction(authed, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			uid, _ := kit.Caller(c)
			if err := m.Svc.Logout(c, uid); err != nil {
				return nil, err
			}
			m.Cookies.Clear(c)
			return gin.H{"loggedOut": true}, nil
		},
	})

	type forgotIn struct {
		Email string `json:"email" binding:"required,email"`
	}
	httpez.RegisterAction(throttled, db, httpez.Action[forgotIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/forgot-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *forgotIn) (gin.H, error) {
			if _, err := m.Svc.ForgotPassword(c, in.Email); err != nil {
				return nil, err
			}
			return gin.H{"message": "if the account exists, a reset link has been sent"}, nil
		},
	})

	httpez.RegisterAction(public, db, httpez.Action[PasswordInput, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/reset-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *PasswordInput) (gin.H, error) {
			if err := m.Svc.ResetPassword(c, *in); err != nil {
				return nil, err
			}
			return gin.H{"reset": true}, nil
		},
	})

	type changeIn struct {
		OldPassword        string `json:"oldPassword" binding:"required"`
		NewPassword        string `json:"newPassword" binding:"required"`
		ConfirmNewPassword string `json:"confirmNewPassword" binding:"required"`
	}
	httpez.RegisterAction(authed, db, httpez.Action[changeIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/users/me/password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *changeIn) (gin.H, error) {
			uid, _ := kit.Caller(c)
			if err := m.Svc.ChangePassword(c, uid, in.OldPassword, in.NewPassword, in.ConfirmNewPassword); err != nil {
				return nil, err
			}
			return gin.H{"changed": true}, nil
		},
	})
}
