package testutil

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"club-api/internal/core/database"
	"club-api/internal/domain"
)

// NewDB 每个测试独立的内存库，已迁移并写入角色/分类
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), database.Opts{LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(db, nil, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func Ptr[T any](v T) *T { return &v }

// CreateUser 直接落库，不走注册流程
func CreateUser(t *testing.T, db *gorm.DB, email string, active bool, roles ...domain.RoleAssignment) *domain.User {
	t.Helper()
	u := &domain.User{FirstName: "Test", LastName: "User", Email: email, IsActive: active}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, r := range roles {
		row := domain.UserRoleCategory{UserID: u.ID, RoleID: r.RoleID, CategoryID: r.CategoryID}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("create role: %v", err)
		}
	}
	return u
}
