package team

import (
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/repo"
)

type Service struct {
	Ref *repo.Reference
}

func NewService(ref *repo.Reference) *Service { return &Service{Ref: ref} }

type Input struct {
	Name       string `json:"name" binding:"required,max=64"`
	Division   string `json:"division" binding:"max=64"`
	CategoryID uint   `json:"categoryId" binding:"required"`
	// nil 表示更新时保留原教练
	CoachIDs *[]uint `json:"coachIds"`
}

type coachLink struct {
	TeamID      uint `gorm:"primaryKey;autoIncrement:false"`
	UserCoachID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (coachLink) TableName() string { return "users_coach_team" }

// RequireRoleInCategory ids 里每个人都必须在该分类持有 roleID
func RequireRoleInCategory(tx *gorm.DB, ids []uint, roleID, categoryID uint, what string) error {
	if len(ids) == 0 {
		return nil
	}
	var ok []uint
	err := tx.Model(&domain.UserRoleCategory{}).
		Distinct("user_id").
		Where("user_id IN ? AND role_id = ? AND category_id = ?", ids, roleID, categoryID).
		Pluck("user_id", &ok).Error
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !slices.Contains(ok, id) {
			return apperr.Validation(fmt.Sprintf("user %d is not a %s of this category", id, what))
		}
	}
	return nil
}

func dedupe(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func setCoaches(tx *gorm.DB, teamID uint, ids []uint) error {
	if err := tx.Where("team_id = ?", teamID).Delete(&coachLink{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]coachLink, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, coachLink{TeamID: teamID, UserCoachID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func load(db *gorm.DB, id uint) (*domain.Team, error) {
	var t domain.Team
	err := db.Preload("Category").Preload("Coaches").First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("team not found")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) checkCategory(id uint) error {
	if _, ok := s.Ref.Category(id); !ok {
		return apperr.NotFound("category not found")
	}
	return nil
}

func (s *Service) Create(tx *gorm.DB, in Input) (*domain.Team, error) {
	if err := s.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}
	var coaches []uint
	if in.CoachIDs != nil {
		coaches = dedupe(*in.CoachIDs)
	}
	if err := RequireRoleInCategory(tx, coaches, domain.RoleCoach, in.CategoryID, "coach"); err != nil {
		return nil, err
	}
	t := &domain.Team{Name: in.Name, Division: in.Division, CategoryID: in.CategoryID}
	if err := tx.Omit("Coaches").Create(t).Error; err != nil {
		return nil, err
	}
	if err := setCoaches(tx, t.ID, coaches); err != nil {
		return nil, err
	}
	return load(tx, t.ID)
}

// Update 换分类时现有教练也要在新分类里是教练
func (s *Service) Update(tx *gorm.DB, id uint, in Input) (*domain.Team, error) {
	t, err := load(tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}
	coaches := make([]uint, 0, len(t.Coaches))
	for _, c := range t.Coaches {
		coaches = append(coaches, c.ID)
	}
	if in.CoachIDs != nil {
		coaches = dedupe(*in.CoachIDs)
	}
	if err := RequireRoleInCategory(tx, coaches, domain.RoleCoach, in.CategoryID, "coach"); err != nil {
		return nil, err
	}
	err = tx.Model(&domain.Team{}).Where("id = ?", id).Updates(map[string]any{
		"name": in.Name, "division": in.Division, "category_id": in.CategoryID,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := setCoaches(tx, id, coaches); err != nil {
		return nil, err
	}
	return load(tx, id)
}

// Delete 连同该队的召集一起删
func (s *Service) Delete(tx *gorm.DB, id uint) error {
	if _, err := load(tx, id); err != nil {
		return err
	}
	var convIDs []uint
	if err := tx.Model(&domain.Convocation{}).Where("team_id = ?", id).Pluck("id", &convIDs).Error; err != nil {
		return err
	}
	if len(convIDs) > 0 {
		if err := tx.Exec("DELETE FROM users_convocation WHERE convocation_id IN ?", convIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", convIDs).Delete(&domain.Convocation{}).Error; err != nil {
			return err
		}
	}
	if err := setCoaches(tx, id, nil); err != nil {
		return err
	}
	return tx.Delete(&domain.Team{}, id).Error
}

type Filter struct {
	Category string `form:"category"`
}

// List category 可以是分类 ID 或名称
func (s *Service) List(db *gorm.DB, f Filter) ([]domain.Team, error) {
	q := db.Preload("Category").Preload("Coaches").Order("category_id, name, id")
	if f.Category != "" {
		cat, ok := s.Ref.CategoryByName(f.Category)
		if !ok {
			var id uint
			if _, err := fmt.Sscan(f.Category, &id); err == nil {
				cat, ok = s.Ref.Category(id)
			}
		}
		if !ok {
			return nil, apperr.NotFound("category not found")
		}
		q = q.Where("category_id = ?", cat.ID)
	}
	out := []domain.Team{}
	return out, q.Find(&out).Error
}

func (s *Service) Mine(db *gorm.DB, categoryIDs []uint) ([]domain.Team, error) {
	out := []domain.Team{}
	if len(categoryIDs) == 0 {
		return out, nil
	}
	err := db.Preload("Category").Preload("Coaches").
		Where("category_id IN ?", categoryIDs).
		Order("category_id, name, id").
		Find(&out).Error
	return out, err
}

func (s *Service) Get(db *gorm.DB, id uint) (*domain.Team, error) { return load(db, id) }
