package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"club-api/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// WithTx 同一仓储在事务里使用
func (r *UserRepo) WithTx(tx *gorm.DB) *UserRepo { return &UserRepo{db: tx} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// FindByID 查不到返回 nil, nil
func (r *UserRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindWithRoles(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("role_id, category_id") }).
		Preload("Roles.Role").Preload("Roles.Category").
		First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? AND id <> ?", NormalizeEmail(email), exceptID).
		Count(&n).Error
	return n > 0, err
}

type UserFilter struct {
	Q          string
	RoleID     uint
	CategoryID *uint
	Active     *bool
}

func (r *UserRepo) List(ctx context.Context, f UserFilter, offset, limit int) ([]domain.User, int64, error) {
	var users []domain.User
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}
	if f.Active != nil {
		tx = tx.Where("is_active = ?", *f.Active)
	}
	if f.RoleID != 0 {
		sub := r.db.Model(&domain.UserRoleCategory{}).Select("user_id").Where("role_id = ?", f.RoleID)
		if f.CategoryID != nil {
			sub = sub.Where("category_id = ?", *f.CategoryID)
		}
		tx = tx.Where("id IN (?)", sub)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := tx.Preload("Roles").Preload("Roles.Role").Preload("Roles.Category").Order("last_name, first_name, id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateColumns 只写给定列；refresh_token / password 由各自的方法维护
func (r *UserRepo) UpdateColumns(ctx context.Context, id uint, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(cols).Error
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, id uint, token *string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("refresh_token", token).Error
}

// RotateRefreshToken 仅当库里仍是 presented 时替换；false 表示已被轮换或登出
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id uint, presented, next string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND refresh_token = ?", id, presented).
		Update("refresh_token", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete 连同关联行一起删
func (r *UserRepo) Delete(ctx context.Context, id uint) (bool, error) {
	var ok bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, q := range []struct {
			model any
			where string
		}{
			{&domain.UserRoleCategory{}, "user_id = ?"},
			{&domain.TrainingUserStatus{}, "user_id = ?"},
			{&domain.PrivateMessage{}, "sender_id = ? OR receiver_id = ?"},
			{&domain.GroupMessage{}, "sender_id = ?"},
		} {
			args := []any{id}
			if strings.Count(q.where, "?") == 2 {
				args = append(args, id)
			}
			if err := tx.Where(q.where, args...).Delete(q.model).Error; err != nil {
				return err
			}
		}
		for _, join := range []string{"users_coach_team", "users_convocation", "users_chat_group"} {
			col := "user_id"
			if join == "users_coach_team" {
				col = "user_coach_id"
			}
			if err := tx.Exec("DELETE FROM "+join+" WHERE "+col+" = ?", id).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&domain.Article{}).Where("user_author_id = ?", id).Update("user_author_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		ok = res.RowsAffected > 0
		return nil
	})
	return ok, err
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
