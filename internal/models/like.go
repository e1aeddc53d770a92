package models

import "time"

// Like marks a user's appreciation of a quiz. A user likes a quiz at most once.
type Like struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuizID    uint      `gorm:"not null;uniqueIndex:idx_like_quiz_user" json:"quiz_id"`
	Quiz      *Quiz     `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_quiz_user;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
