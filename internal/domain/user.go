package domain

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FirstName    string    `gorm:"size:30;not null" json:"firstName"`
	LastName     string    `gorm:"size:50;not null" json:"lastName"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Phone        *string   `gorm:"size:10" json:"phone"`
	PasswordHash *string   `gorm:"column:password;size:100" json:"-"`
	IsActive     bool      `gorm:"not null;default:false" json:"isActive"`
	RefreshToken *string   `gorm:"size:1024" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Roles []UserRoleCategory `gorm:"foreignKey:UserID" json:"roles,omitempty"`
}

func (User) TableName() string { return "users" }

// UserSummary 名单类接口只回传这几列
type UserSummary struct {
	ID        uint    `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Phone: u.Phone}
}
