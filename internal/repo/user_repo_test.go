package repo_test

import (
	"testing"

	"club-api/internal/domain"
	"club-api/internal/repo"
	"club-api/internal/testutil"
)

func TestRotateRefreshTokenIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	users := repo.NewUserRepo(db)
	u := testutil.CreateUser(t, db, "rot@club.test", true)
	ctx := t.Context()

	if err := users.SetRefreshToken(ctx, u.ID, testutil.Ptr("old")); err != nil {
		t.Fatal(err)
	}
	ok, err := users.RotateRefreshToken(ctx, u.ID, "old", "new")
	if err != nil || !ok {
		t.Fatalf("first rotation: ok=%v err=%v", ok, err)
	}
	ok, err = users.RotateRefreshToken(ctx, u.ID, "old", "newer")
	if err != nil || ok {
		t.Fatalf("replayed rotation: ok=%v err=%v", ok, err)
	}
	got, _ := users.FindByID(ctx, u.ID)
	if got.RefreshToken == nil || *got.RefreshToken != "new" {
		t.Fatalf("stored = %v", got.RefreshToken)
	}
}

func TestListFiltersByRoleAndCategory(t *testing.T) {
	db := testutil.NewDB(t)
	users := repo.NewUserRepo(db)
	testutil.CreateUser(t, db, "p5@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](5)})
	testutil.CreateUser(t, db, "p6@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](6)})
	testutil.CreateUser(t, db, "c5@club.test", true, domain.RoleAssignment{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr[uint](5)})

	list, total, err := users.List(t.Context(), repo.UserFilter{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](5)}, 0, 0)
	if err != nil || total != 1 || len(list) != 1 || list[0].Email != "p5@club.test" {
		t.Fatalf("total=%d list=%v err=%v", total, list, err)
	}
	if len(list[0].Roles) != 1 || list[0].Roles[0].Role == nil || list[0].Roles[0].Role.Name != "player" {
		t.Fatalf("roles not preloaded: %+v", list[0].Roles)
	}

	_, total, _ = users.List(t.Context(), repo.UserFilter{Q: "C5@"}, 0, 10)
	if total != 1 {
		t.Fatalf("search total = %d", total)
	}
}

func TestDeleteRemovesDependentRows(t *testing.T) {
	db := testutil.NewDB(t)
	users := repo.NewUserRepo(db)
	u := testutil.CreateUser(t, db, "del@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](5)})
	tr := domain.Training{Type: "training", Date: "2025-01-01", StartTime: "18:00", Status: "active", CategoryID: 5}
	db.Create(&tr)
	db.Create(&domain.TrainingUserStatus{TrainingID: tr.ID, UserID: u.ID, Status: domain.AttendancePending})

	ok, err := users.Delete(t.Context(), u.ID)
	if err != nil || !ok {
		t.Fatalf("delete ok=%v err=%v", ok, err)
	}
	var n int64
	db.Model(&domain.TrainingUserStatus{}).Where("user_id = ?", u.ID).Count(&n)
	if n != 0 {
		t.Fatalf("status rows left: %d", n)
	}
	ok, _ = users.Delete(t.Context(), u.ID)
	if ok {
		t.Fatal("second delete reported success")
	}
}
