package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind 令牌用途；每种用途独立密钥
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindSignup  Kind = "signup"
	KindReset   Kind = "reset"
)

var (
	ErrTokenExpired = fmt.Errorf("token expired: %w", jwt.ErrTokenExpired)
	ErrTokenInvalid = errors.New("token invalid")
)

type RoleClaim struct {
	RoleID     uint  `json:"roleId"`
	CategoryID *uint `json:"categoryId"`
}

type Claims struct {
	UserID uint        `json:"userId"`
	Roles  []RoleClaim `json:"roles,omitempty"`
	Use    Kind        `json:"use"`
	jwt.RegisteredClaims
}

type KeySpec struct {
	Secret []byte
	TTL    time.Duration
}

type JWTer struct {
	Issuer string
	Keys   map[Kind]KeySpec
	Now    func() time.Time
}

func NewJWTer(issuer string, keys map[Kind]KeySpec) *JWTer {
	return &JWTer{Issuer: issuer, Keys: keys, Now: time.Now}
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) key(k Kind) (KeySpec, error) {
	ks, ok := j.Keys[k]
	if !ok || len(ks.Secret) == 0 {
		return KeySpec{}, fmt.Errorf("jwt: no key for %q", k)
	}
	return ks, nil
}

func (j *JWTer) issue(k Kind, uid uint, roles []RoleClaim) (string, error) {
	ks, err := j.key(k)
	if err != nil {
		return "", err
	}
	now := j.now()
	claims := Claims{
		UserID: uid,
		Roles:  roles,
		Use:    k,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   strconv.FormatUint(uint64(uid), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ks.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ks.Secret)
}

func (j *JWTer) IssueAccess(uid uint, roles []RoleClaim) (string, error) {
	return j.issue(KindAccess, uid, roles)
}

func (j *JWTer) IssueRefresh(uid uint) (string, error) { return j.issue(KindRefresh, uid, nil) }
func (j *JWTer) IssueSignup(uid uint) (string, error)  { return j.issue(KindSignup, uid, nil) }
func (j *JWTer) IssueReset(uid uint) (string, error)   { return j.issue(KindReset, uid, nil) }

// Parse 校验签名、过期与用途；过期返回 ErrTokenExpired，其它一律 ErrTokenInvalid
func (j *JWTer) Parse(k Kind, tokenStr string) (*Claims, error) {
	ks, err := j.key(k)
	if err != nil {
		return nil, err
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return ks.Secret, nil
	},
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Use != k || c.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return c, nil
}
