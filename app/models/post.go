package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents an article in the system
type Post struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	Title      string         `gorm:"type:varchar(255)" json:"title" validate:"required,min=3,max=255"`
	Slug       string         `gorm:"uniqueIndex;type:varchar(255)" json:"slug" validate:"required,min=3,max=255"`
	Content    string         `gorm:"type:longtext" json:"content" validate:"required"`
	Excerpt    string         `gorm:"type:text" json:"excerpt" validate:"max=2000"`
	Published  bool           `gorm:"type:tinyint(1);default:0" json:"published"`
	Premium    bool           `gorm:"type:tinyint(1);default:0;index" json:"premium"`
	UserID     uint           `gorm:"index" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID" json:"user"`
	CategoryID uint           `gorm:"index" json:"category_id"`
	Category   Category       `gorm:"foreignKey:CategoryID" json:"category"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Post model
func (Post) TableName() string {
	return "posts"
}
