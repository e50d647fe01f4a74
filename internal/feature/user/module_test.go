package user_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"club-api/internal/core/cache"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	"club-api/internal/feature/user"
	"club-api/internal/repo"
	"club-api/internal/testutil"
	mdw "club-api/internal/transport/http/middleware"
)

func TestAdminWritesClearDependentCaches(t *testing.T) {
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	j := testutil.NewJWTer()
	sess := &mdw.Session{JWT: j}
	members := repo.NewMemberships(ref)
	m := &user.Module{
		Deps: kit.Deps{DB: db, Cache: c, Ref: ref, Members: members, Session: sess.Handler()},
		Svc:  user.NewService(db, ref, members),
	}
	r := testutil.NewEngine()
	m.MountAdmin(r.Group("/admin/v1", sess.Handler()))

	u := testutil.CreateUser(t, db, "coach@club.test", true, domain.RoleAssignment{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr[uint](6)})
	admin := testutil.Token(t, j, 1, testutil.Role(domain.RoleAdmin))

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, fmt.Sprintf("/admin/v1/users/%d", u.ID), map[string]any{"roles": []map[string]any{{"roleId": domain.RoleMember}}}},
		{http.MethodPost, fmt.Sprintf("/admin/v1/users/%d/deactivate", u.ID), nil},
	}
	for _, tc := range cases {
		keys := []string{"users:/api/v1/users", "teams:/api/v1/teams", "trainings:/api/v1/trainings"}
		for _, k := range keys {
			if err := mr.Set(k, "{}"); err != nil {
				t.Fatal(err)
			}
		}
		w := testutil.Do(t, r, tc.method, tc.path, tc.body, admin)
		if w.Code != http.StatusOK {
			t.Fatalf("%s %s = %d %s", tc.method, tc.path, w.Code, w.Body)
		}
		for _, k := range keys {
			if mr.Exists(k) {
				t.Errorf("%s %s left %s cached", tc.method, tc.path, k)
			}
		}
	}
}
