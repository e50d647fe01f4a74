package auth_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"club-api/internal/domain"
	"club-api/internal/feature/auth"
	"club-api/internal/feature/kit"
	"club-api/internal/repo"
	"club-api/internal/testutil"
	mdw "club-api/internal/transport/http/middleware"
)

func newRouter(t *testing.T) (*gin.Engine, *auth.Service) {
	t.Helper()
	svc, db, _ := newService(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	cookies := mdw.Cookies{Enabled: true, AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour}
	sess := &mdw.Session{JWT: svc.JWT, Refresher: svc, Cookies: cookies}
	m := &auth.Module{
		Deps:    kit.Deps{DB: db, Session: sess.Handler(), Ref: ref, Members: svc.Members},
		Svc:     svc,
		Cookies: cookies,
	}
	r := testutil.NewEngine()
	m.MountAPI(r.Group("/api/v1"))
	return r, svc
}

func TestSignupRequiresAdmin(t *testing.T) {
	r, svc := newRouter(t)
	body := map[string]any{
		"firstName": "Ana", "lastName": "Lopes", "email": "ana@club.test",
		"roles": []map[string]any{{"roleId": domain.RoleMember}},
	}

	coach := testutil.Token(t, svc.JWT, 99, testutil.Role(domain.RoleCoach, 1))
	if w := testutil.Do(t, r, http.MethodPost, "/api/v1/auth/signup", body, coach); w.Code != http.StatusForbidden {
		t.Fatalf("coach signup = %d, want 403", w.Code)
	}

	admin := testutil.Token(t, svc.JWT, 98, testutil.Role(domain.RoleAdmin))
	w := testutil.Do(t, r, http.MethodPost, "/api/v1/auth/signup", body, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin signup = %d %s", w.Code, w.Body)
	}
	var out struct {
		User            domain.UserSummary `json:"user"`
		ActivationToken string             `json:"activationToken"`
	}
	testutil.Decode(t, w, &out)
	if out.User.ID == 0 || out.ActivationToken == "" {
		t.Fatalf("out = %+v", out)
	}
}

func TestSignupRejectsBadPayload(t *testing.T) {
	r, svc := newRouter(t)
	admin := testutil.Token(t, svc.JWT, 98, testutil.Role(domain.RoleAdmin))
	w := testutil.Do(t, r, http.MethodPost, "/api/v1/auth/signup", map[string]any{"firstName": "Ana"}, admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}

func TestLoginSetsCookiesAndBody(t *testing.T) {
	r, svc := newRouter(t)
	registerAndActivate(t, svc, "ana@club.test", domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](4)})

	w := testutil.Do(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ana@club.test", "password": goodPW}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body)
	}
	var out struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			Roles []struct {
				RoleID     uint  `json:"roleId"`
				CategoryID *uint `json:"categoryId"`
			} `json:"roles"`
		} `json:"user"`
	}
	testutil.Decode(t, w, &out)
	if out.Token == "" || out.RefreshToken == "" {
		t.Fatal("tokens missing from body")
	}
	if len(out.User.Roles) != 1 || out.User.Roles[0].CategoryID == nil || *out.User.Roles[0].CategoryID != 4 {
		t.Errorf("roles = %+v", out.User.Roles)
	}
	cookies := strings.Join(w.Header().Values("Set-Cookie"), ";")
	if !strings.Contains(cookies, mdw.CookieAccess+"=") || !strings.Contains(cookies, "HttpOnly") {
		t.Errorf("cookies = %q", cookies)
	}

	// 错误密码：401 且不设 cookie
	w = testutil.Do(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ana@club.test", "password": "Wrong!pass1"}, "")
	if w.Code != http.StatusUnauthorized || len(w.Header().Values("Set-Cookie")) != 0 {
		t.Fatalf("bad login = %d cookies=%v", w.Code, w.Header().Values("Set-Cookie"))
	}
}

func TestRefreshEndpointAcceptsBody(t *testing.T) {
	r, svc := newRouter(t)
	u := registerAndActivate(t, svc, "ana@club.test", domain.RoleAssignment{RoleID: domain.RoleMember})
	pair, _, err := svc.Login(t.Context(), u.Email, goodPW)
	if err != nil {
		t.Fatal(err)
	}
	w := testutil.Do(t, r, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refreshToken": pair.Refresh}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d %s", w.Code, w.Body)
	}
	w = testutil.Do(t, r, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refreshToken": pair.Refresh}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replay = %d, want 401", w.Code)
	}
	w = testutil.Do(t, r, http.MethodPost, "/api/v1/auth/refresh", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("empty = %d, want 401", w.Code)
	}
	// JSON 字符串而不是对象
	w = testutil.Do(t, r, http.MethodPost, "/api/v1/auth/refresh", "refreshToken", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed = %d, want 400", w.Code)
	}
}

func TestForgotPasswordAlwaysOK(t *testing.T) {
	r, _ := newRouter(t)
	w := testutil.Do(t, r, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "ghost@club.test"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestChangePasswordNeedsSession(t *testing.T) {
	r, _ := newRouter(t)
	w := testutil.Do(t, r, http.MethodPut, "/api/v1/users/me/password", map[string]string{"oldPassword": "a", "newPassword": "b", "confirmNewPassword": "b"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}
