package domain

import "time"

type PrivateMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	SenderID   uint      `gorm:"not null;index" json:"senderId"`
	ReceiverID uint      `gorm:"not null;index" json:"receiverId"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (PrivateMessage) TableName() string { return "private_messages" }

// ChatGroup 成员由 RoleID / CategoryID 推导
type ChatGroup struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CategoryID *uint          `gorm:"index" json:"categoryId"`
	RoleID     *uint          `gorm:"index" json:"roleId"`
	Members    []User         `gorm:"many2many:users_chat_group;joinForeignKey:ChatGroupID;joinReferences:UserID" json:"-"`
	Messages   []GroupMessage `gorm:"foreignKey:ChatGroupID" json:"messages,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (ChatGroup) TableName() string { return "chat_groups" }

type GroupMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	SenderID    uint      `gorm:"not null;index" json:"senderId"`
	ChatGroupID uint      `gorm:"not null;index" json:"chatGroupId"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

func (GroupMessage) TableName() string { return "group_messages" }
