package models

import "time"

// Session is a refresh token kept in the database when redis is not configured.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64" json:"-"`
	UserId    int       `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
