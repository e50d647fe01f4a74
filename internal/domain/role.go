package domain

// 固定角色 ID，与种子数据一致
const (
	RolePlayer uint = 1
	RoleCoach  uint = 2
	RoleMember uint = 3
	RoleAdmin  uint = 4
)

type RoleKind int

const (
	RoleKindGlobal RoleKind = iota
	RoleKindCategoryScoped
)

func (k RoleKind) String() string {
	if k == RoleKindCategoryScoped {
		return "category-scoped"
	}
	return "global"
}

type Role struct {
	ID             uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name           string `gorm:"uniqueIndex;size:32;not null" json:"name"`
	CategoryScoped bool   `gorm:"not null;default:false" json:"categoryScoped"`
}

func (Role) TableName() string { return "roles" }

func (r Role) Kind() RoleKind {
	if r.CategoryScoped {
		return RoleKindCategoryScoped
	}
	return RoleKindGlobal
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"uniqueIndex;size:32;not null" json:"name"`
}

func (Category) TableName() string { return "categories" }

// UserRoleCategory 用户-角色-分类；分类型角色必须带 CategoryID，全局角色为 NULL
type UserRoleCategory struct {
	ID         uint  `gorm:"primaryKey" json:"-"`
	UserID     uint  `gorm:"not null;uniqueIndex:uq_user_role_category,priority:1" json:"userId"`
	RoleID     uint  `gorm:"not null;uniqueIndex:uq_user_role_category,priority:2;index" json:"roleId"`
	CategoryID *uint `gorm:"uniqueIndex:uq_user_role_category,priority:3;index" json:"categoryId"`

	Role     *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (UserRoleCategory) TableName() string { return "user_roles_categories" }

// RoleAssignment 注册/改角色时的入参
type RoleAssignment struct {
	RoleID     uint  `json:"roleId" binding:"required"`
	CategoryID *uint `json:"categoryId"`
}
