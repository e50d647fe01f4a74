package message

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/repo"
)

type GroupInput struct {
	Name       string `json:"name" binding:"required,max=64"`
	RoleID     *uint  `json:"roleId"`
	CategoryID *uint  `json:"categoryId"`
}

// normalize 全局角色忽略分类；分类型角色必须带分类；只给分类也可以
func (s *Service) normalize(in GroupInput) (GroupInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperr.Validation("name is required")
	}
	if in.RoleID != nil && *in.RoleID == 0 {
		in.RoleID = nil
	}
	if in.CategoryID != nil && *in.CategoryID == 0 {
		in.CategoryID = nil
	}
	if in.RoleID == nil && in.CategoryID == nil {
		return in, apperr.Validation("a role or a category is required")
	}
	if in.RoleID != nil {
		role, ok := s.Ref.Role(*in.RoleID)
		if !ok {
			return in, apperr.NotFound("role not found")
		}
		if role.Kind() == domain.RoleKindGlobal {
			in.CategoryID = nil
		} else if in.CategoryID == nil {
			return in, apperr.Validation("role " + role.Name + " requires a category")
		}
	}
	if in.CategoryID != nil {
		if _, ok := s.Ref.Category(*in.CategoryID); !ok {
			return in, apperr.NotFound("category not found")
		}
	}
	return in, nil
}

type GroupView struct {
	domain.ChatGroup
	MemberCount int `json:"memberCount"`
}

func (s *Service) CreateGroup(tx *gorm.DB, in GroupInput) (*GroupView, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	g := &domain.ChatGroup{Name: in.Name, RoleID: in.RoleID, CategoryID: in.CategoryID}
	if err := tx.Omit("Members", "Messages").Create(g).Error; err != nil {
		return nil, err
	}
	ids, err := repo.SyncChatGroup(tx, g)
	if err != nil {
		return nil, err
	}
	return &GroupView{ChatGroup: *g, MemberCount: len(ids)}, nil
}

func findGroup(db *gorm.DB, id uint) (*domain.ChatGroup, error) {
	var g domain.ChatGroup
	err := db.First(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("chat group not found")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGroup 规则同创建，成员按新条件重算
func (s *Service) UpdateGroup(tx *gorm.DB, id uint, in GroupInput) (*GroupView, error) {
	g, err := findGroup(tx, id)
	if err != nil {
		return nil, err
	}
	in, err = s.normalize(in)
	if err != nil {
		return nil, err
	}
	err = tx.Model(&domain.ChatGroup{}).Where("id = ?", id).
		Updates(map[string]any{"name": in.Name, "role_id": in.RoleID, "category_id": in.CategoryID}).Error
	if err != nil {
		return nil, err
	}
	g.Name, g.RoleID, g.CategoryID = in.Name, in.RoleID, in.CategoryID
	ids, err := repo.SyncChatGroup(tx, g)
	if err != nil {
		return nil, err
	}
	return &GroupView{ChatGroup: *g, MemberCount: len(ids)}, nil
}

func (s *Service) DeleteGroup(tx *gorm.DB, id uint) error {
	if _, err := findGroup(tx, id); err != nil {
		return err
	}
	if err := tx.Where("chat_group_id = ?", id).Delete(&domain.GroupMessage{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM users_chat_group WHERE chat_group_id = ?", id).Error; err != nil {
		return err
	}
	return tx.Delete(&domain.ChatGroup{}, id).Error
}

// MyGroups 调用者所在的群
func (s *Service) MyGroups(db *gorm.DB, userID uint) ([]domain.ChatGroup, error) {
	out := []domain.ChatGroup{}
	err := db.Joins("JOIN users_chat_group ucg ON ucg.chat_group_id = chat_groups.id").
		Where("ucg.user_id = ?", userID).
		Order("chat_groups.name").
		Find(&out).Error
	return out, err
}

func (s *Service) requireMember(db *gorm.DB, groupID, userID uint, admin bool) (*domain.ChatGroup, error) {
	g, err := findGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	if admin {
		return g, nil
	}
	ok, err := repo.IsChatMember(db, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("you are not a member of this group")
	}
	return g, nil
}

// Group 带消息，成员或管理员可看
func (s *Service) Group(db *gorm.DB, groupID, userID uint, admin bool) (*domain.ChatGroup, error) {
	g, err := s.requireMember(db, groupID, userID, admin)
	if err != nil {
		return nil, err
	}
	g.Messages = []domain.GroupMessage{}
	err = db.Where("chat_group_id = ?", groupID).Order("created_at, id").Find(&g.Messages).Error
	return g, err
}

type PostInput struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func (s *Service) Post(db *gorm.DB, groupID, userID uint, admin bool, in PostInput) (*domain.GroupMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if _, err := s.requireMember(db, groupID, userID, admin); err != nil {
		return nil, err
	}
	m := &domain.GroupMessage{ChatGroupID: groupID, SenderID: userID, Content: content}
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}
