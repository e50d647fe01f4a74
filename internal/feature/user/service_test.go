package user_test

import (
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/feature/user"
	"club-api/internal/repo"
	"club-api/internal/testutil"
)

func newService(t *testing.T) (*user.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	return user.NewService(db, ref, repo.NewMemberships(ref)), db
}

func TestByRoleAndCategoryName(t *testing.T) {
	svc, db := newService(t)
	testutil.CreateUser(t, db, "p1@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](7)})
	testutil.CreateUser(t, db, "p2@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](8)})
	testutil.CreateUser(t, db, "c1@club.test", true, domain.RoleAssignment{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr[uint](7)})

	all, err := svc.ByRole(t.Context(), "player", "")
	if err != nil || len(all) != 2 {
		t.Fatalf("players = %d err=%v", len(all), err)
	}
	seniors, err := svc.ByRole(t.Context(), "Player", "senior")
	if err != nil || len(seniors) != 1 || seniors[0].Email != "p1@club.test" {
		t.Fatalf("senior players = %+v err=%v", seniors, err)
	}
	if len(seniors[0].Roles) != 1 || seniors[0].Roles[0].Category == nil || seniors[0].Roles[0].Category.Name != "senior" {
		t.Errorf("roles not preloaded: %+v", seniors[0].Roles)
	}
	if _, err := svc.ByRole(t.Context(), "goalkeeper", ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown role err = %v", err)
	}
	if _, err := svc.ByRole(t.Context(), "player", "U99"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown category err = %v", err)
	}
}

func TestUpdateMeEmailConflict(t *testing.T) {
	svc, db := newService(t)
	a := testutil.CreateUser(t, db, "a@club.test", true)
	testutil.CreateUser(t, db, "b@club.test", true)

	if _, err := svc.UpdateMe(t.Context(), a.ID, user.ProfileInput{Email: testutil.Ptr("B@club.test")}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	u, err := svc.UpdateMe(t.Context(), a.ID, user.ProfileInput{FirstName: testutil.Ptr(" Zoé "), Phone: testutil.Ptr("0601020304")})
	if err != nil {
		t.Fatal(err)
	}
	if u.FirstName != "Zoé" || u.Phone == nil || *u.Phone != "0601020304" || u.Email != "a@club.test" {
		t.Errorf("user = %+v", u)
	}
}

func TestAdminUpdateReplacesRolesAndRevokes(t *testing.T) {
	svc, db := newService(t)
	tr := domain.Training{Type: domain.TrainingTypeTraining, Date: "2025-10-01", StartTime: "18:00", Status: domain.TrainingActive, CategoryID: 6}
	if err := db.Create(&tr).Error; err != nil {
		t.Fatal(err)
	}
	u := testutil.CreateUser(t, db, "a@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](5)})
	db.Model(&domain.User{}).Where("id = ?", u.ID).Update("refresh_token", "stale")

	got, err := svc.AdminUpdate(t.Context(), u.ID, user.AdminInput{
		IsActive: testutil.Ptr(false),
		Roles:    []domain.RoleAssignment{{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr[uint](6)}, {RoleID: domain.RoleMember}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive || len(got.Roles) != 2 || got.Roles[0].RoleID != domain.RoleCoach {
		t.Fatalf("user = %+v", got)
	}
	var fresh domain.User
	db.First(&fresh, u.ID)
	if fresh.RefreshToken != nil {
		t.Error("refresh token kept after deactivation")
	}
	var n int64
	db.Model(&domain.TrainingUserStatus{}).Where("user_id = ? AND training_id = ?", u.ID, tr.ID).Count(&n)
	if n != 1 {
		t.Errorf("new category fan-out rows = %d, want 1", n)
	}
}

func TestAdminUpdateBadRoleRollsBack(t *testing.T) {
	svc, db := newService(t)
	u := testutil.CreateUser(t, db, "a@club.test", true, domain.RoleAssignment{RoleID: domain.RoleMember})

	_, err := svc.AdminUpdate(t.Context(), u.ID, user.AdminInput{
		ProfileInput: user.ProfileInput{LastName: testutil.Ptr("Changed")},
		Roles:        []domain.RoleAssignment{{RoleID: domain.RoleCoach}},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	var fresh domain.User
	db.Preload("Roles").First(&fresh, u.ID)
	if fresh.LastName != "User" || len(fresh.Roles) != 1 || fresh.Roles[0].RoleID != domain.RoleMember {
		t.Errorf("changes leaked out of the failed transaction: %+v", fresh)
	}
}

func TestDeactivateAndDelete(t *testing.T) {
	svc, db := newService(t)
	u := testutil.CreateUser(t, db, "a@club.test", true, domain.RoleAssignment{RoleID: domain.RoleMember})
	if err := svc.Deactivate(t.Context(), u.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(t.Context(), 999); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("deactivate unknown err = %v", err)
	}
	if err := svc.Delete(t.Context(), u.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(t.Context(), u.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestUpdateMeKeepsConcurrentRotation(t *testing.T) {
	svc, db := newService(t)
	u := testutil.CreateUser(t, db, "a@club.test", true)
	users := repo.NewUserRepo(db)
	if err := users.SetRefreshToken(t.Context(), u.ID, testutil.Ptr("R1")); err != nil {
		t.Fatal(err)
	}

	// 资料写回之前插入一次刷新轮换
	var fired atomic.Bool
	err := db.Callback().Update().Before("gorm:update").Register("test:rotate", func(tx *gorm.DB) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		ok, err := repo.NewUserRepo(tx.Session(&gorm.Session{NewDB: true})).RotateRefreshToken(tx.Statement.Context, u.ID, "R1", "R2")
		if err != nil || !ok {
			t.Errorf("rotation in flight: ok=%v err=%v", ok, err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateMe(t.Context(), u.ID, user.ProfileInput{FirstName: testutil.Ptr("Zoé")}); err != nil {
		t.Fatal(err)
	}
	if !fired.Load() {
		t.Fatal("update callback never ran")
	}
	var fresh domain.User
	db.First(&fresh, u.ID)
	if fresh.RefreshToken == nil || *fresh.RefreshToken != "R2" {
		t.Fatalf("refresh token = %v, want R2", fresh.RefreshToken)
	}
	if fresh.FirstName != "Zoé" {
		t.Errorf("first name = %q", fresh.FirstName)
	}
}
