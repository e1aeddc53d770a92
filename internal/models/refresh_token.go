package models

import "time"

// RefreshToken is the server-side record of a single-use refresh credential.
// JwtID binds it to the access token it was issued alongside.
type RefreshToken struct {
	Token       string    `gorm:"primaryKey;size:128" json:"-"`
	JwtID       string    `gorm:"size:64;not null;index" json:"jwt_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	Used        bool      `gorm:"not null;default:false" json:"used"`
	Invalidated bool      `gorm:"not null;default:false" json:"invalidated"`
}
