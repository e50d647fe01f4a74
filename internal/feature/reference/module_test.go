package reference_test

import (
	"net/http"
	"testing"

	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	"club-api/internal/feature/reference"
	"club-api/internal/repo"
	"club-api/internal/testutil"
	mdw "club-api/internal/transport/http/middleware"
)

func TestRolesAndCategories(t *testing.T) {
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	j := testutil.NewJWTer()
	sess := &mdw.Session{JWT: j}
	m := &reference.Module{Deps: kit.Deps{DB: db, Ref: ref, Session: sess.Handler()}}
	r := testutil.NewEngine()
	m.MountAPI(r.Group("/api/v1"))

	if w := testutil.Do(t, r, http.MethodGet, "/api/v1/roles", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d, want 401", w.Code)
	}

	tok := testutil.Token(t, j, 1, testutil.Role(domain.RoleMember))
	var roles []domain.Role
	testutil.Decode(t, testutil.Do(t, r, http.MethodGet, "/api/v1/roles", nil, tok), &roles)
	if len(roles) != 4 || roles[0].Name != "player" || !roles[1].CategoryScoped || roles[3].CategoryScoped {
		t.Errorf("roles = %+v", roles)
	}
	var cats []domain.Category
	testutil.Decode(t, testutil.Do(t, r, http.MethodGet, "/api/v1/categories", nil, tok), &cats)
	if len(cats) != 9 || cats[0].Name != "U7" || cats[8].Name != "futsal" {
		t.Errorf("categories = %+v", cats)
	}
}
