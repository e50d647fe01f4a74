package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"club-api/internal/core/auth"
)

func NewJWTer() *auth.JWTer {
	return auth.NewJWTer("club-api-test", map[auth.Kind]auth.KeySpec{
		auth.KindAccess:  {Secret: []byte("test-access"), TTL: 15 * time.Minute},
		auth.KindRefresh: {Secret: []byte("test-refresh"), TTL: 7 * 24 * time.Hour},
		auth.KindSignup:  {Secret: []byte("test-signup"), TTL: 48 * time.Hour},
		auth.KindReset:   {Secret: []byte("test-reset"), TTL: time.Hour},
	})
}

// Token 直接签一个访问令牌
func Token(t *testing.T, j *auth.JWTer, uid uint, roles ...auth.RoleClaim) string {
	t.Helper()
	tok, err := j.IssueAccess(uid, roles)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func Role(roleID uint, categoryID ...uint) auth.RoleClaim {
	rc := auth.RoleClaim{RoleID: roleID}
	if len(categoryID) > 0 {
		rc.CategoryID = Ptr(categoryID[0])
	}
	return rc
}

func Do(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Decode 解出 data；out 为 nil 时只返回信封
func Decode(t *testing.T, w *httptest.ResponseRecorder, out any) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", w.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

func NewEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.ContextWithFallback = true
	return r
}
