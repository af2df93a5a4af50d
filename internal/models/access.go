package models

import "time"

type PermissionType string

const (
	PermissionRead PermissionType = "read"
	PermissionEdit PermissionType = "edit"
)

// DocumentAccess grants a user shared access to someone else's document.
// One grant per (document, user) pair.
type DocumentAccess struct {
	ID             uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	DocID          string         `json:"doc_id" gorm:"type:char(36);not null;uniqueIndex:idx_doc_user_access"`
	UserID         uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_doc_user_access"`
	PermissionType PermissionType `json:"permission_type" gorm:"type:varchar(10);not null;default:'read'"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`

	Document *Document `json:"document,omitempty" gorm:"foreignKey:DocID;references:DocID"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID;references:UserID"`
}

type AccessCreate struct {
	DocID          string         `json:"doc_id"`
	UserID         uint           `json:"user_id"`
	PermissionType PermissionType `json:"permission_type"`
}

// InviteRequest shares a document with a collaborator by email address.
type InviteRequest struct {
	DocID          string         `json:"doc_id"`
	Email          string         `json:"email"`
	PermissionType PermissionType `json:"permission_type"`
}
