package models

import (
	"time"
)

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	CreatedAt    time.Time `gorm:"not null"                    json:"created_at"`
}

// PublicUser is the only user shape that leaves the service.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email}
}

type Profile struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	UserID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `gorm:"not null"                              json:"created_at"`
}

// RefreshToken holds one issued refresh token. The raw jti never reaches
// the table, only its digest.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"        json:"id"`
	UserID    string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	JTIHash   string     `gorm:"uniqueIndex;not null"            json:"-"`
	ExpiresAt time.Time  `gorm:"index;not null"                  json:"expires_at"`
	IP        *string    `json:"ip,omitempty"`
	UserAgent *string    `json:"user_agent,omitempty"`
	CreatedAt time.Time  `gorm:"not null"                        json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func All() []any {
	return []any{&User{}, &Profile{}, &RefreshToken{}}
}

// ClientMeta annotates newly issued refresh tokens.
type ClientMeta struct {
	IP        string
	UserAgent string
}
