package user

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/core/database"
	"club-api/internal/domain"
	"club-api/internal/repo"
)

type Service struct {
	DB      *gorm.DB
	Users   *repo.UserRepo
	Ref     *repo.Reference
	Members *repo.Memberships
}

func NewService(db *gorm.DB, ref *repo.Reference, members *repo.Memberships) *Service {
	return &Service{DB: db, Users: repo.NewUserRepo(db), Ref: ref, Members: members}
}

// ProfileInput 字段为空表示不改
type ProfileInput struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=30"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=50"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,phone10"`
}

// AdminInput 管理员改用户：Roles 非空时整体替换
type AdminInput struct {
	ProfileInput
	IsActive *bool                   `json:"isActive"`
	Roles    []domain.RoleAssignment `json:"roles" binding:"omitempty,dive"`
}

func (s *Service) Get(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.Users.FindWithRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, f repo.UserFilter, offset, limit int) ([]domain.User, int64, error) {
	return s.Users.List(ctx, f, offset, limit)
}

// ByRole 按角色名（可选分类名）筛选
func (s *Service) ByRole(ctx context.Context, roleName, categoryName string) ([]domain.User, error) {
	role, ok := s.Ref.RoleByName(roleName)
	if !ok {
		return nil, apperr.NotFound("role " + roleName + " not found")
	}
	f := repo.UserFilter{RoleID: role.ID}
	if categoryName != "" {
		cat, ok := s.Ref.CategoryByName(categoryName)
		if !ok {
			return nil, apperr.NotFound("category " + categoryName + " not found")
		}
		f.CategoryID = &cat.ID
	}
	users, _, err := s.Users.List(ctx, f, 0, 0)
	return users, err
}

func (s *Service) applyProfile(ctx context.Context, users *repo.UserRepo, u *domain.User, in ProfileInput) error {
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if u.FirstName == "" || u.LastName == "" {
		return apperr.Validation("firstName and lastName cannot be empty")
	}
	if in.Phone != nil {
		if *in.Phone == "" {
			u.Phone = nil
		} else {
			p := *in.Phone
			u.Phone = &p
		}
	}
	if in.Email != nil {
		email := repo.NormalizeEmail(*in.Email)
		if email != u.Email {
			taken, err := users.EmailTaken(ctx, email, u.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("email already registered")
			}
			u.Email = email
		}
	}
	return nil
}

func profileColumns(u *domain.User) map[string]any {
	return map[string]any{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"phone":      u.Phone,
	}
}

func (s *Service) save(ctx context.Context, users *repo.UserRepo, id uint, cols map[string]any) error {
	err := users.UpdateColumns(ctx, id, cols)
	if database.IsDuplicate(err) {
		return apperr.Conflict("email already registered")
	}
	return err
}

// UpdateMe 本人资料；不能改角色与激活状态
func (s *Service) UpdateMe(ctx context.Context, id uint, in ProfileInput) (*domain.User, error) {
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	if err := s.applyProfile(ctx, s.Users, u, in); err != nil {
		return nil, err
	}
	if err := s.save(ctx, s.Users, u.ID, profileColumns(u)); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// AdminUpdate 资料 + 激活开关 + 角色整体替换，同一事务
func (s *Service) AdminUpdate(ctx context.Context, id uint, in AdminInput) (*domain.User, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.Users.WithTx(tx)
		u, err := users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user not found")
		}
		if err := s.applyProfile(ctx, users, u, in.ProfileInput); err != nil {
			return err
		}
		cols := profileColumns(u)
		if in.IsActive != nil && *in.IsActive != u.IsActive {
			// 状态切换后旧会话作废
			cols["is_active"] = *in.IsActive
			cols["refresh_token"] = nil
		}
		if err := s.save(ctx, users, u.ID, cols); err != nil {
			return err
		}
		if in.Roles != nil {
			if len(in.Roles) == 0 {
				return apperr.Validation("at least one role is required")
			}
			if _, err := s.Members.Replace(tx, u.ID, in.Roles); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Deactivate 停用并吊销刷新令牌
func (s *Service) Deactivate(ctx context.Context, id uint) error {
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	return s.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "refresh_token": nil}).Error
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	ok, err := s.Users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("user not found")
	}
	return nil
}
