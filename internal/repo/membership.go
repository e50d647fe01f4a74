package repo

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
)

// Memberships 角色授予及其连带写入（训练出勤行、聊天群成员）；所有方法都在调用方事务内执行
type Memberships struct {
	ref *Reference
}

func NewMemberships(ref *Reference) *Memberships { return &Memberships{ref: ref} }

// Normalize 校验并去重；全局角色的分类强制为 NULL
func (m *Memberships) Normalize(pairs []domain.RoleAssignment) ([]domain.RoleAssignment, error) {
	type key struct {
		role uint
		cat  uint
	}
	seen := make(map[key]struct{}, len(pairs))
	out := make([]domain.RoleAssignment, 0, len(pairs))
	for _, p := range pairs {
		role, ok := m.ref.Role(p.RoleID)
		if !ok {
			return nil, apperr.NotFound(fmt.Sprintf("role %d not found", p.RoleID))
		}
		var cat *uint
		if role.Kind() == domain.RoleKindCategoryScoped {
			if p.CategoryID == nil || *p.CategoryID == 0 {
				return nil, apperr.Validation(fmt.Sprintf("role %s requires a category", role.Name))
			}
			if _, ok := m.ref.Category(*p.CategoryID); !ok {
				return nil, apperr.NotFound(fmt.Sprintf("category %d not found", *p.CategoryID))
			}
			c := *p.CategoryID
			cat = &c
		}
		k := key{role: role.ID}
		if cat != nil {
			k.cat = *cat
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, domain.RoleAssignment{RoleID: role.ID, CategoryID: cat})
	}
	return out, nil
}

// Assign 授予角色：分类型角色先铺开该分类已有训练的出勤行，再写角色行，最后加入匹配的聊天群
func (m *Memberships) Assign(tx *gorm.DB, userID uint, pairs []domain.RoleAssignment) ([]domain.RoleAssignment, error) {
	norm, err := m.Normalize(pairs)
	if err != nil {
		return nil, err
	}
	for _, p := range norm {
		if p.CategoryID != nil {
			if err := fanOutUserTrainings(tx, userID, *p.CategoryID); err != nil {
				return nil, err
			}
		}
		row := domain.UserRoleCategory{UserID: userID, RoleID: p.RoleID, CategoryID: p.CategoryID}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
	}
	if err := joinChatGroups(tx, userID, norm); err != nil {
		return nil, err
	}
	return norm, nil
}

// Replace 整体替换：先删后插
func (m *Memberships) Replace(tx *gorm.DB, userID uint, pairs []domain.RoleAssignment) ([]domain.RoleAssignment, error) {
	if _, err := m.Normalize(pairs); err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&domain.UserRoleCategory{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Exec("DELETE FROM users_chat_group WHERE user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return m.Assign(tx, userID, pairs)
}

func fanOutUserTrainings(tx *gorm.DB, userID, categoryID uint) error {
	var ids []uint
	if err := tx.Model(&domain.Training{}).Where("category_id = ?", categoryID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]domain.TrainingUserStatus, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, domain.TrainingUserStatus{TrainingID: id, UserID: userID, Status: domain.AttendancePending})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// SubscribeTraining 给分类内持分类型角色的用户建出勤行，返回新建行数
func (m *Memberships) SubscribeTraining(tx *gorm.DB, t *domain.Training) (int64, error) {
	roles := m.ref.ScopedRoleIDs()
	if len(roles) == 0 {
		return 0, nil
	}
	var userIDs []uint
	err := tx.Model(&domain.UserRoleCategory{}).
		Distinct("user_id").
		Where("category_id = ? AND role_id IN ?", t.CategoryID, roles).
		Pluck("user_id", &userIDs).Error
	if err != nil || len(userIDs) == 0 {
		return 0, err
	}
	rows := make([]domain.TrainingUserStatus, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, domain.TrainingUserStatus{TrainingID: t.ID, UserID: uid, Status: domain.AttendancePending})
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

// ChatGroupMemberIDs 群成员由角色/分类推导
func ChatGroupMemberIDs(tx *gorm.DB, g *domain.ChatGroup) ([]uint, error) {
	q := tx.Model(&domain.UserRoleCategory{}).Distinct("user_id")
	switch {
	case g.RoleID != nil && g.CategoryID != nil:
		q = q.Where("role_id = ? AND category_id = ?", *g.RoleID, *g.CategoryID)
	case g.RoleID != nil:
		q = q.Where("role_id = ?", *g.RoleID)
	case g.CategoryID != nil:
		q = q.Where("category_id = ?", *g.CategoryID)
	default:
		return nil, nil
	}
	var ids []uint
	err := q.Pluck("user_id", &ids).Error
	return ids, err
}

// SyncChatGroup 重算成员
func SyncChatGroup(tx *gorm.DB, g *domain.ChatGroup) ([]uint, error) {
	if err := tx.Exec("DELETE FROM users_chat_group WHERE chat_group_id = ?", g.ID).Error; err != nil {
		return nil, err
	}
	ids, err := ChatGroupMemberIDs(tx, g)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	return ids, addChatMembers(tx, g.ID, ids)
}

type chatMember struct {
	ChatGroupID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID      uint `gorm:"primaryKey;autoIncrement:false"`
}

func (chatMember) TableName() string { return "users_chat_group" }

func addChatMembers(tx *gorm.DB, groupID uint, userIDs []uint) error {
	rows := make([]chatMember, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, chatMember{ChatGroupID: groupID, UserID: uid})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func joinChatGroups(tx *gorm.DB, userID uint, pairs []domain.RoleAssignment) error {
	if len(pairs) == 0 {
		return nil
	}
	var groups []domain.ChatGroup
	if err := tx.Find(&groups).Error; err != nil {
		return err
	}
	for _, g := range groups {
		if !groupMatches(g, pairs) {
			continue
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&chatMember{ChatGroupID: g.ID, UserID: userID}).Error; err != nil {
			return err
		}
	}
	return nil
}

func groupMatches(g domain.ChatGroup, pairs []domain.RoleAssignment) bool {
	for _, p := range pairs {
		roleOK := g.RoleID == nil || *g.RoleID == p.RoleID
		catOK := g.CategoryID == nil || (p.CategoryID != nil && *p.CategoryID == *g.CategoryID)
		if (g.RoleID != nil || g.CategoryID != nil) && roleOK && catOK {
			return true
		}
	}
	return false
}

// IsChatMember 群内发言/查看前的校验
func IsChatMember(tx *gorm.DB, groupID, userID uint) (bool, error) {
	var n int64
	err := tx.Table("users_chat_group").Where("chat_group_id = ? AND user_id = ?", groupID, userID).Count(&n).Error
	return n > 0, err
}
