package models

// User is a workspace account. The integer primary key is referenced by
// directories, documents and access grants.
type User struct {
	UserID         uint   `json:"user_id" gorm:"primaryKey;autoIncrement"`
	Username       string `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Email          string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName       string `json:"full_name" gorm:"type:varchar(255)"`
	Gender         string `json:"gender,omitempty" gorm:"type:varchar(20)"`
	HashedPassword string `json:"-" gorm:"type:text;not null"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserOut is the public projection of a user (no credential material).
type UserOut struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

func (u *User) Out() *UserOut {
	return &UserOut{
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
	}
}
