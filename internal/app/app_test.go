package app

import (
	"testing"

	coreauth "club-api/internal/core/auth"
	"club-api/internal/core/config"
)

func TestJWTerKeysAreSeparate(t *testing.T) {
	j := NewJWTer(config.JWT{
		Issuer:            "club-api",
		AccessSecret:      "a",
		RefreshSecret:     "r",
		SignupSecret:      "s",
		ResetSecret:       "p",
		AccessTokenTTLMin: 15,
		RefreshTTLHours:   1,
		SignupTTLHours:    1,
		ResetTTLMin:       5,
	})
	tok, err := j.IssueRefresh(7)
	if err != nil {
		t.Fatal(err)
	}
	if c, err := j.Parse(coreauth.KindRefresh, tok); err != nil || c.UserID != 7 {
		t.Fatalf("refresh parse = %+v, %v", c, err)
	}
	if _, err := j.Parse(coreauth.KindAccess, tok); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
}
