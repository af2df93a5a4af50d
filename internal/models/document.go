package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is a rich-text document in the workspace. Content is the full
// serialized editor payload; the live collaboration channel replaces it
// wholesale and the REST "Save" path persists it here.
type Document struct {
	DocID       string    `json:"doc_id" gorm:"type:char(36);primaryKey"`
	DocName     string    `json:"doc_name" gorm:"type:varchar(50);not null"`
	Content     string    `json:"content" gorm:"type:text"`
	UserID      uint      `json:"user_id" gorm:"not null;index"`
	DirectoryID string    `json:"directory_id" gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Directory *Directory `json:"-" gorm:"foreignKey:DirectoryID;references:DirID"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.DocID == "" {
		d.DocID = uuid.NewString()
	}
	return nil
}

type DocumentCreate struct {
	DocName     string `json:"doc_name"`
	Content     string `json:"content"`
	UserID      uint   `json:"user_id"`
	DirectoryID string `json:"directory_id"`
}

type DocumentUpdate struct {
	DocName     *string `json:"doc_name,omitempty"`
	Content     *string `json:"content,omitempty"`
	DirectoryID *string `json:"directory_id,omitempty"`
}

// DocumentContent is the body of the explicit "Save" call, which persists
// content independently of the live-sync channel.
type DocumentContent struct {
	Content string `json:"content"`
}

type DocumentMove struct {
	NewDirectoryID string `json:"new_directory_id"`
}
