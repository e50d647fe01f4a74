package database_test

import (
	"testing"

	"club-api/internal/core/database"
	"club-api/internal/domain"
	"club-api/internal/testutil"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	admin := &database.AdminSeed{Email: "admin@club.test", FirstName: "A", LastName: "B", PasswordHash: "$2a$04$x"}
	for i := 0; i < 2; i++ {
		if err := database.Seed(db, admin, nil); err != nil {
			t.Fatalf("seed #%d: %v", i, err)
		}
	}
	var roles, cats, users, links int64
	db.Model(&domain.Role{}).Count(&roles)
	db.Model(&domain.Category{}).Count(&cats)
	db.Model(&domain.User{}).Count(&users)
	db.Model(&domain.UserRoleCategory{}).Where("role_id = ?", domain.RoleAdmin).Count(&links)
	if roles != 4 || cats != int64(len(database.DefaultCategories)) || users != 1 || links != 1 {
		t.Fatalf("roles=%d cats=%d users=%d adminLinks=%d", roles, cats, users, links)
	}

	var coach domain.Role
	db.First(&coach, domain.RoleCoach)
	if coach.Kind() != domain.RoleKindCategoryScoped {
		t.Errorf("coach kind = %v", coach.Kind())
	}
}
