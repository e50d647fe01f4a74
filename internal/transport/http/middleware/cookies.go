package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"club-api/internal/core/auth"
)

const (
	CookieAccess  = "token"
	CookieRefresh = "refreshToken"

	HeaderRefresh    = "X-Refresh-Token"
	HeaderNewAccess  = "X-Access-Token"
	HeaderNewRefresh = "X-Refresh-Token"
)

// Cookies httpOnly；生产环境 SameSite=None + Secure，开发环境 Lax
type Cookies struct {
	Enabled    bool
	Domain     string
	Production bool
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (k Cookies) set(c *gin.Context, name, value string, maxAge int) {
	secure := k.Secure || k.Production
	if k.Production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(name, value, maxAge, "/", k.Domain, secure, true)
}

func (k Cookies) SetTokens(c *gin.Context, p auth.TokenPair) {
	if !k.Enabled {
		return
	}
	k.set(c, CookieAccess, p.Access, int(k.AccessTTL/time.Second))
	if p.Refresh != "" {
		k.set(c, CookieRefresh, p.Refresh, int(k.RefreshTTL/time.Second))
	}
}

func (k Cookies) Clear(c *gin.Context) {
	if !k.Enabled {
		return
	}
	k.set(c, CookieAccess, "", -1)
	k.set(c, CookieRefresh, "", -1)
}

type Carrier int

const (
	CarrierNone Carrier = iota
	CarrierCookie
	CarrierHeader
)

type Credentials struct {
	Access  string
	Refresh string
	Carrier Carrier
}

func (cr Credentials) Empty() bool { return cr.Access == "" && cr.Refresh == "" }

// ResolveCredentials 先 cookie 后 header
func ResolveCredentials(c *gin.Context) Credentials {
	access, _ := c.Cookie(CookieAccess)
	refresh, _ := c.Cookie(CookieRefresh)
	if access != "" || refresh != "" {
		return Credentials{Access: access, Refresh: refresh, Carrier: CarrierCookie}
	}
	cr := Credentials{Refresh: strings.TrimSpace(c.GetHeader(HeaderRefresh))}
	if ah := c.GetHeader("Authorization"); len(ah) > 7 && strings.EqualFold(ah[:7], "Bearer ") {
		cr.Access = strings.TrimSpace(ah[7:])
	}
	if !cr.Empty() {
		cr.Carrier = CarrierHeader
	}
	return cr
}

// EmitTokens 按来时的载体回写新令牌
func (k Cookies) EmitTokens(c *gin.Context, carrier Carrier, p auth.TokenPair) {
	switch carrier {
	case CarrierCookie:
		k.SetTokens(c, p)
	default:
		c.Header(HeaderNewAccess, p.Access)
		if p.Refresh != "" {
			c.Header(HeaderNewRefresh, p.Refresh)
		}
	}
}
