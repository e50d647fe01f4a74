package message_test

import (
	"testing"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/feature/message"
	"club-api/internal/repo"
	"club-api/internal/testutil"
)

func newService(t *testing.T) (*message.Service, *gorm.DB, *repo.Memberships) {
	t.Helper()
	db := testutil.NewDB(t)
	ref, err := repo.LoadReference(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	return message.NewService(ref), db, repo.NewMemberships(ref)
}

func TestPrivateMessages(t *testing.T) {
	svc, db, _ := newService(t)
	a := testutil.CreateUser(t, db, "a@club.test", true)
	b := testutil.CreateUser(t, db, "b@club.test", true)
	c := testutil.CreateUser(t, db, "c@club.test", true)

	if _, err := svc.SendPrivate(db, a.ID, message.PrivateInput{ReceiverID: a.ID, Content: "me"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("self err = %v", err)
	}
	if _, err := svc.SendPrivate(db, a.ID, message.PrivateInput{ReceiverID: 999, Content: "hi"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown receiver err = %v", err)
	}
	for _, m := range []struct {
		from, to uint
		text     string
	}{{a.ID, b.ID, "1"}, {b.ID, a.ID, "2"}, {a.ID, c.ID, "3"}, {a.ID, b.ID, "4"}} {
		if _, err := svc.SendPrivate(db, m.from, message.PrivateInput{ReceiverID: m.to, Content: m.text}); err != nil {
			t.Fatal(err)
		}
	}

	conv, err := svc.Conversation(db, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv) != 3 || conv[0].Content != "1" || conv[2].Content != "4" {
		t.Errorf("conversation = %+v", conv)
	}

	list, err := svc.Conversations(db, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].With.ID != b.ID || list[0].Last.Content != "4" || list[1].Last.Content != "3" {
		t.Errorf("conversations = %+v", list)
	}
}

func TestGroupRules(t *testing.T) {
	svc, db, _ := newService(t)
	cases := []struct {
		name string
		in   message.GroupInput
		kind apperr.Kind
	}{
		{"nothing", message.GroupInput{Name: "g"}, apperr.KindValidation},
		{"scoped role without category", message.GroupInput{Name: "g", RoleID: testutil.Ptr(domain.RolePlayer)}, apperr.KindValidation},
		{"unknown role", message.GroupInput{Name: "g", RoleID: testutil.Ptr[uint](9)}, apperr.KindNotFound},
		{"unknown category", message.GroupInput{Name: "g", CategoryID: testutil.Ptr[uint](42)}, apperr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateGroup(db, tc.in); !apperr.Is(err, tc.kind) {
				t.Fatalf("err = %v, want kind %d", err, tc.kind)
			}
		})
	}

	g, err := svc.CreateGroup(db, message.GroupInput{Name: "members", RoleID: testutil.Ptr(domain.RoleMember), CategoryID: testutil.Ptr[uint](3)})
	if err != nil {
		t.Fatal(err)
	}
	if g.CategoryID != nil {
		t.Errorf("global role group kept category %v", *g.CategoryID)
	}
}

func TestGroupMembershipFollowsRoles(t *testing.T) {
	svc, db, members := newService(t)
	p := testutil.CreateUser(t, db, "p@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](6)})
	coach := testutil.CreateUser(t, db, "c@club.test", true, domain.RoleAssignment{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr[uint](6)})
	outsider := testutil.CreateUser(t, db, "o@club.test", true, domain.RoleAssignment{RoleID: domain.RolePlayer, CategoryID: testutil.Ptr[uint](7)})

	g, err := svc.CreateGroup(db, message.GroupInput{Name: "U18", CategoryID: testutil.Ptr[uint](6)})
	if err != nil {
		t.Fatal(err)
	}
	if g.MemberCount != 2 {
		t.Fatalf("members = %d, want 2", g.MemberCount)
	}

	if _, err := svc.Post(db, g.ID, p.ID, false, message.PostInput{Content: "salut"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Post(db, g.ID, outsider.ID, false, message.PostInput{Content: "hey"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("outsider post err = %v", err)
	}
	if _, err := svc.Group(db, g.ID, outsider.ID, false); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("outsider read err = %v", err)
	}
	got, err := svc.Group(db, g.ID, coach.ID, false)
	if err != nil || len(got.Messages) != 1 {
		t.Fatalf("group = %+v err=%v", got, err)
	}

	// 新授予的角色自动入群
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := members.Assign(tx, outsider.ID, []domain.RoleAssignment{{RoleID: domain.RoleCoach, CategoryID: testutil.Ptr[uint](6)}})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	mine, err := svc.MyGroups(db, outsider.ID)
	if err != nil || len(mine) != 1 {
		t.Errorf("outsider groups = %+v err=%v", mine, err)
	}

	// 改成只含教练
	upd, err := svc.UpdateGroup(db, g.ID, message.GroupInput{Name: "U18 staff", RoleID: testutil.Ptr(domain.RoleCoach), CategoryID: testutil.Ptr[uint](6)})
	if err != nil || upd.MemberCount != 2 {
		t.Fatalf("update = %+v err=%v", upd, err)
	}
	if ok, _ := repo.IsChatMember(db, g.ID, p.ID); ok {
		t.Error("player still a member after narrowing to coaches")
	}

	if err := svc.DeleteGroup(db, g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Group(db, g.ID, coach.ID, true); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("after delete err = %v", err)
	}
}
