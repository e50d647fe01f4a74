package database

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-api/internal/domain"
)

var DefaultRoles = []domain.Role{
	{ID: domain.RolePlayer, Name: "player", CategoryScoped: true},
	{ID: domain.RoleCoach, Name: "coach", CategoryScoped: true},
	{ID: domain.RoleMember, Name: "member"},
	{ID: domain.RoleAdmin, Name: "admin"},
}

var DefaultCategories = []domain.Category{
	{ID: 1, Name: "U7"},
	{ID: 2, Name: "U9"},
	{ID: 3, Name: "U11"},
	{ID: 4, Name: "U13"},
	{ID: 5, Name: "U15"},
	{ID: 6, Name: "U18"},
	{ID: 7, Name: "senior"},
	{ID: 8, Name: "veteran"},
	{ID: 9, Name: "futsal"},
}

// AdminSeed 首个管理员；PasswordHash 由调用方提前算好
type AdminSeed struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
}

// Seed 幂等：已存在的行不动
func Seed(db *gorm.DB, admin *AdminSeed, log *zap.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		roles := append([]domain.Role(nil), DefaultRoles...)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
			return err
		}
		cats := append([]domain.Category(nil), DefaultCategories...)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cats).Error; err != nil {
			return err
		}
		if admin == nil || admin.Email == "" {
			return nil
		}

		var existing domain.User
		err := tx.Where("email = ?", admin.Email).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hash := admin.PasswordHash
		u := domain.User{
			FirstName:    admin.FirstName,
			LastName:     admin.LastName,
			Email:        admin.Email,
			PasswordHash: &hash,
			IsActive:     true,
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.UserRoleCategory{UserID: u.ID, RoleID: domain.RoleAdmin}).Error; err != nil {
			return err
		}
		if log != nil {
			log.Info("seeded admin account", zap.String("email", u.Email), zap.Uint("id", u.ID))
		}
		return nil
	})
}
