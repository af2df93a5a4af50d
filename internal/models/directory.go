package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultDirectoryColor matches the workspace UI's folder accent.
const DefaultDirectoryColor = "#99e810"

// Directory is a folder in the workspace tree. Self-referencing: a nil
// ParentID means the directory sits at the root.
type Directory struct {
	DirID     string    `json:"dir_id" gorm:"type:char(36);primaryKey"`
	DirName   string    `json:"dir_name" gorm:"type:varchar(50);not null"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	ParentID  *string   `json:"parent_id" gorm:"type:char(36);index"`
	Color     string    `json:"color" gorm:"type:varchar(7);default:'#99e810'"`
	Starred   bool      `json:"is_starred" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Parent   *Directory `json:"-" gorm:"foreignKey:ParentID;references:DirID"`
	Children []Directory `json:"-" gorm:"foreignKey:ParentID;references:DirID"`
}

// BeforeCreate assigns a UUID primary key, mirroring the directory rows the
// rest of the workspace already references by uuid4 strings.
func (d *Directory) BeforeCreate(tx *gorm.DB) error {
	if d.DirID == "" {
		d.DirID = uuid.NewString()
	}
	if d.Color == "" {
		d.Color = DefaultDirectoryColor
	}
	return nil
}

type DirectoryCreate struct {
	DirName  string  `json:"dir_name"`
	UserID   uint    `json:"user_id"`
	ParentID *string `json:"parent_id,omitempty"`
	Color    string  `json:"color,omitempty"`
}

type DirectoryUpdate struct {
	DirName  *string `json:"dir_name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	Color    *string `json:"color,omitempty"`
	Starred  *bool   `json:"is_starred,omitempty"`
}

// TreeNode is one entry in the nested folder/document tree the sidebar
// renders. Folders carry children; documents are leaves.
type TreeNode struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"` // "folder" or "document"
	ParentID  *string     `json:"parent_id"`
	Color     string      `json:"color,omitempty"`
	Starred   bool        `json:"is_starred,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Children  []*TreeNode `json:"children,omitempty"`
}
