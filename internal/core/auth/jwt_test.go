package auth

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestJWTer(now *time.Time) *JWTer {
	j := NewJWTer("club-api", map[Kind]KeySpec{
		KindAccess:  {Secret: []byte("access-secret"), TTL: 15 * time.Minute},
		KindRefresh: {Secret: []byte("refresh-secret"), TTL: 7 * 24 * time.Hour},
		KindSignup:  {Secret: []byte("signup-secret"), TTL: 48 * time.Hour},
		KindReset:   {Secret: []byte("reset-secret"), TTL: time.Hour},
	})
	j.Now = func() time.Time { return *now }
	return j
}

func u(v uint) *uint { return &v }

func TestAccessRoundTrip(t *testing.T) {
	now := t0
	j := newTestJWTer(&now)
	roles := []RoleClaim{{RoleID: 1, CategoryID: u(5)}, {RoleID: 3}}

	tok, err := j.IssueAccess(42, roles)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = t0.Add(14 * time.Minute)
	c, err := j.Parse(KindAccess, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UserID != 42 {
		t.Errorf("uid = %d", c.UserID)
	}
	if !reflect.DeepEqual(c.Roles, roles) {
		t.Errorf("roles = %+v, want %+v", c.Roles, roles)
	}
}

func TestExpiryBoundary(t *testing.T) {
	now := t0
	j := newTestJWTer(&now)
	tok, err := j.IssueAccess(1, nil)
	if err != nil {
		t.Fatal(err)
	}

	now = t0.Add(15*time.Minute - time.Second)
	if _, err := j.Parse(KindAccess, tok); err != nil {
		t.Fatalf("one second before expiry: %v", err)
	}
	for _, d := range []time.Duration{15 * time.Minute, 16 * time.Minute} {
		now = t0.Add(d)
		if _, err := j.Parse(KindAccess, tok); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("at +%v: err = %v, want ErrTokenExpired", d, err)
		}
	}
}

func TestKindsDoNotCross(t *testing.T) {
	now := t0
	j := newTestJWTer(&now)
	refresh, _ := j.IssueRefresh(7)

	if _, err := j.Parse(KindAccess, refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh as access: err = %v", err)
	}
	// 同一密钥下 use 不符也拒绝
	j.Keys[KindReset] = j.Keys[KindSignup]
	signup, _ := j.IssueSignup(7)
	if _, err := j.Parse(KindReset, signup); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("signup as reset: err = %v", err)
	}
}

func TestTamperedAndGarbage(t *testing.T) {
	now := t0
	j := newTestJWTer(&now)
	tok, _ := j.IssueAccess(9, nil)

	other := newTestJWTer(&now)
	other.Keys[KindAccess] = KeySpec{Secret: []byte("someone-else"), TTL: time.Minute}
	forged, _ := other.IssueAccess(9, nil)

	for name, s := range map[string]string{
		"forged":  forged,
		"garbage": "not.a.jwt",
		"empty":   "",
		"cut":     tok[:len(tok)-3],
	} {
		if _, err := j.Parse(KindAccess, s); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("%s: err = %v, want ErrTokenInvalid", name, err)
		}
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	now := t0
	j := newTestJWTer(&now)
	a, _ := j.IssueRefresh(3)
	b, _ := j.IssueRefresh(3)
	if a == b {
		t.Fatal("two refresh tokens issued in the same second must differ")
	}
}

func TestIdentityHelpers(t *testing.T) {
	id := Identity{UserID: 1, Roles: []RoleClaim{{RoleID: 1, CategoryID: u(5)}, {RoleID: 2, CategoryID: u(5)}, {RoleID: 2, CategoryID: u(6)}, {RoleID: 3}}}
	if !id.HasAnyRole(4, 2) || id.HasAnyRole(4) {
		t.Error("HasAnyRole")
	}
	if got := id.CategoryIDs(); !reflect.DeepEqual(got, []uint{5, 6}) {
		t.Errorf("CategoryIDs = %v", got)
	}
	if !id.InCategory(6) || id.InCategory(7) {
		t.Error("InCategory")
	}
}
