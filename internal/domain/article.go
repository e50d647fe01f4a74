package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	ArticleDraft     = "draft"
	ArticlePublished = "published"
	ArticleArchived  = "archived"
)

func ValidArticleStatus(s string) bool {
	return s == ArticleDraft || s == ArticlePublished || s == ArticleArchived
}

// JSONDoc 以文本列存储的任意 JSON 文档
type JSONDoc []byte

func (d JSONDoc) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "null", nil
	}
	return string(d), nil
}

func (d *JSONDoc) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append((*d)[:0], v...)
	case string:
		*d = JSONDoc(v)
	default:
		return errors.New("jsondoc: unsupported scan type")
	}
	return nil
}

func (d JSONDoc) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *JSONDoc) UnmarshalJSON(b []byte) error {
	if !json.Valid(b) {
		return errors.New("jsondoc: invalid json")
	}
	*d = append((*d)[:0], b...)
	return nil
}

func (d JSONDoc) IsEmpty() bool {
	t := bytes.TrimSpace(d)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

type Article struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:128;not null" json:"title"`
	Slug         string     `gorm:"uniqueIndex;size:160;not null" json:"slug"`
	Content      JSONDoc    `gorm:"type:text;not null" json:"content"`
	Status       string     `gorm:"size:16;not null;default:draft;index" json:"status"`
	CoverURL     *string    `gorm:"size:512" json:"coverUrl"`
	UserAuthorID *uint      `gorm:"index" json:"userAuthorId"`
	Author       *User      `gorm:"foreignKey:UserAuthorID" json:"author,omitempty"`
	Categories   []Category `gorm:"many2many:article_categories;joinForeignKey:ArticleID;joinReferences:CategoryID" json:"categories"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Article) TableName() string { return "articles" }
