package team_test

import (
	"testing"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/feature/team"
	"club-api/internal/repo"
	"club-api/internal/testutil"
)

func newService(t *testing.T) (*team.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	return team.NewService(ref), db
}

func coach(t *testing.T, db *gorm.DB, email string, categoryID uint) *domain.User {
	t.Helper()
	return testutil.CreateUser(t, db, email, true, domain.RoleAssignment{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr(categoryID)})
}

func TestCreateTeamChecksCoaches(t *testing.T) {
	svc, db := newService(t)
	c7 := coach(t, db, "c7@club.test", 7)
	c8 := coach(t, db, "c8@club.test", 8)
	p7 := testutil.CreateUser(t, db, "p7@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](7)})

	for _, ids := range [][]uint{{c8.ID}, {p7.ID}, {c7.ID, 999}} {
		_, err := svc.Create(db, team.Input{Name: "Seniors A", CategoryID: 7, CoachIDs: &ids})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("coaches %v: err = %v, want validation", ids, err)
		}
	}

	ids := []uint{c7.ID, c7.ID}
	tm, err := svc.Create(db, team.Input{Name: "Seniors A", Division: "R1", CategoryID: 7, CoachIDs: &ids})
	if err != nil {
		t.Fatal(err)
	}
	if len(tm.Coaches) != 1 || tm.Coaches[0].ID != c7.ID || tm.Category == nil || tm.Category.Name != "senior" {
		t.Errorf("team = %+v", tm)
	}
	if _, err := svc.Create(db, team.Input{Name: "X", CategoryID: 77}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown category err = %v", err)
	}
}

func TestUpdateTeamRevalidatesOnCategoryChange(t *testing.T) {
	svc, db := newService(t)
	c7 := coach(t, db, "c7@club.test", 7)
	c8 := coach(t, db, "c8@club.test", 8)
	ids := []uint{c7.ID}
	tm, err := svc.Create(db, team.Input{Name: "A", CategoryID: 7, CoachIDs: &ids})
	if err != nil {
		t.Fatal(err)
	}

	// 保留原教练但换到他不执教的分类
	if _, err := svc.Update(db, tm.ID, team.Input{Name: "A", CategoryID: 8}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	next := []uint{c8.ID}
	got, err := svc.Update(db, tm.ID, team.Input{Name: "B", CategoryID: 8, CoachIDs: &next})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "B" || len(got.Coaches) != 1 || got.Coaches[0].ID != c8.ID {
		t.Errorf("team = %+v", got)
	}
}

func TestListMineAndDelete(t *testing.T) {
	svc, db := newService(t)
	a, _ := svc.Create(db, team.Input{Name: "A", CategoryID: 7})
	if _, err := svc.Create(db, team.Input{Name: "B", CategoryID: 8}); err != nil {
		t.Fatal(err)
	}
	conv := domain.Convocation{MatchDate: "2025-10-04", MatchHour: "15:00", ConvocationHour: "14:00", Location: "Stade", TeamID: a.ID}
	if err := db.Create(&conv).Error; err != nil {
		t.Fatal(err)
	}

	byName, err := svc.List(db, team.Filter{Category: "senior"})
	if err != nil || len(byName) != 1 || byName[0].Name != "A" {
		t.Fatalf("by name = %+v err=%v", byName, err)
	}
	byID, err := svc.List(db, team.Filter{Category: "8"})
	if err != nil || len(byID) != 1 || byID[0].Name != "B" {
		t.Fatalf("by id = %+v err=%v", byID, err)
	}
	if _, err := svc.List(db, team.Filter{Category: "curling"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown category err = %v", err)
	}
	mine, err := svc.Mine(db, []uint{7, 8})
	if err != nil || len(mine) != 2 {
		t.Fatalf("mine = %+v err=%v", mine, err)
	}

	if err := svc.Delete(db, a.ID); err != nil {
		t.Fatal(err)
	}
	var n int64
	db.Model(&domain.Convocation{}).Where("team_id = ?", a.ID).Count(&n)
	if n != 0 {
		t.Errorf("convocations left = %d", n)
	}
	if _, err := svc.Get(db, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}
