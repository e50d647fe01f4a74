package training_test

import (
	"testing"
	"time"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/feature/training"
	"club-api/internal/repo"
	"club-api/internal/testutil"
)

func TestUpdateCategoryRefansOut(t *testing.T) {
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	svc := training.NewService(ref)
	seedPlayers(t, db, 2, 2)
	moved := seedPlayers(t, db, 3, 4)

	tr, n, err := svc.Create(db, training.Input{Type: "training", Date: "2025-09-20", StartTime: "18:00", CategoryID: 2}, nil)
	if err != nil || n != 2 {
		t.Fatalf("create n=%d err=%v", n, err)
	}
	if _, err := svc.Update(db, tr.ID, training.Input{Type: "match", Date: "2025-09-21", StartTime: "10:00", CategoryID: 3}, nil); err != nil {
		t.Fatal(err)
	}
	d, err := svc.Get(db, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Responses.Pending != 4 || d.Type != "match" || d.Category == nil || d.Category.Name != "U11" {
		t.Errorf("detail = %+v", d)
	}

	// 同分类更新不动出勤行
	if _, err := svc.SetAttendance(t.Context(), db, tr.ID, moved[0].ID, domain.AttendanceAbsent); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(db, tr.ID, training.Input{Type: "match", Date: "2025-09-21", StartTime: "11:00", CategoryID: 3}, nil); err != nil {
		t.Fatal(err)
	}
	d, _ = svc.Get(db, tr.ID)
	if d.Responses.Absent != 1 || d.Responses.Pending != 3 {
		t.Errorf("responses = %+v", d.Responses)
	}

	if err := svc.Delete(db, tr.ID, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(db, tr.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	var left int64
	db.Model(&domain.TrainingUserStatus{}).Count(&left)
	if left != 0 {
		t.Errorf("status rows left = %d", left)
	}
}

func TestUpcomingSkipsPastAndCancelled(t *testing.T) {
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	svc := training.NewService(ref)
	svc.Now = func() time.Time { return time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC) }

	for _, in := range []training.Input{
		{Type: "training", Date: "2025-09-14", StartTime: "18:00", CategoryID: 1},
		{Type: "training", Date: "2025-09-15", StartTime: "18:00", CategoryID: 1},
		{Type: "match", Date: "2025-09-16", StartTime: "10:00", CategoryID: 1, Status: domain.TrainingCancelled},
		{Type: "match", Date: "2025-09-17", StartTime: "10:00", CategoryID: 2},
	} {
		if _, _, err := svc.Create(db, in, nil); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.Upcoming(db, 1, []uint{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Date != "2025-09-15" || got[0].MyStatus != nil {
		t.Errorf("upcoming = %+v", got)
	}
	none, err := svc.Upcoming(db, 1, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("no categories: %+v %v", none, err)
	}
}

func TestSetAttendanceOnCancelled(t *testing.T) {
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	svc := training.NewService(ref)
	ps := seedPlayers(t, db, 1, 1)
	tr, _, err := svc.Create(db, training.Input{Type: "match", Date: "2025-09-20", StartTime: "10:00", CategoryID: 1, Status: domain.TrainingCancelled}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetAttendance(t.Context(), db, tr.ID, ps[0].ID, domain.AttendancePresent); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}
