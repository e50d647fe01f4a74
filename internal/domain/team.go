package domain

import "time"

type Team struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:64;not null" json:"name"`
	Division   string    `gorm:"size:64" json:"division"`
	CategoryID uint      `gorm:"not null;index" json:"categoryId"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Coaches    []User    `gorm:"many2many:users_coach_team;joinForeignKey:TeamID;joinReferences:UserCoachID" json:"coaches,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Team) TableName() string { return "teams" }

type Convocation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MatchDate       string    `gorm:"size:10;not null;index" json:"matchDate"`
	MatchHour       string    `gorm:"size:5;not null" json:"matchHour"`
	ConvocationHour string    `gorm:"size:5;not null" json:"convocationHour"`
	Location        string    `gorm:"size:128;not null" json:"location"`
	TeamID          uint      `gorm:"not null;index" json:"teamId"`
	Team            *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Players         []User    `gorm:"many2many:users_convocation;joinForeignKey:ConvocationID;joinReferences:UserID" json:"players,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Convocation) TableName() string { return "convocations" }
