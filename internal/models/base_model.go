package models

import (
	"strconv"
	"time"
)

// BaseModel provides shared fields for all persistent quiz entities.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag returns the cache tag for an entity kind and id, e.g. Tag("Quiz", 1) == "Quiz:1".
func Tag(kind string, id uint) string {
	return kind + ":" + strconv.FormatUint(uint64(id), 10)
}

const (
	KindUser     = "User"
	KindQuiz     = "Quiz"
	KindQuestion = "Question"
	KindChoice   = "Choice"
	KindImage    = "Image"
	KindLike     = "Like"
)
