package domain

import "time"

const (
	TrainingTypeMatch    = "match"
	TrainingTypeTraining = "training"

	TrainingActive    = "active"
	TrainingCancelled = "cancelled"
)

type AttendanceStatus string

const (
	AttendancePending AttendanceStatus = "pending"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePresent AttendanceStatus = "present"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePending, AttendanceAbsent, AttendancePresent:
		return true
	}
	return false
}

// Training Date 为 YYYY-MM-DD，StartTime 为 HH:MM，字符串比较即时间顺序
type Training struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Type       string    `gorm:"size:16;not null" json:"type"`
	Date       string    `gorm:"size:10;not null;index" json:"date"`
	StartTime  string    `gorm:"size:5;not null" json:"startTime"`
	Status     string    `gorm:"size:16;not null;default:active" json:"status"`
	CategoryID uint      `gorm:"not null;index" json:"categoryId"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Training) TableName() string { return "trainings" }

type TrainingUserStatus struct {
	ID         uint             `gorm:"primaryKey" json:"-"`
	TrainingID uint             `gorm:"not null;uniqueIndex:uq_training_user,priority:1" json:"trainingId"`
	UserID     uint             `gorm:"not null;uniqueIndex:uq_training_user,priority:2;index" json:"userId"`
	Status     AttendanceStatus `gorm:"size:16;not null;default:pending" json:"status"`
	UpdatedAt  time.Time        `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (TrainingUserStatus) TableName() string { return "training_users_status" }
