package models

// Quiz groups ordered questions under a title.
type Quiz struct {
	BaseModel

	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"size:2000" json:"description"`
	AuthorID    uint   `gorm:"not null;index" json:"author_id"`
	Author      *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	ImageID     *uint  `gorm:"index" json:"image_id,omitempty"`
	Image       *Image `gorm:"foreignKey:ImageID;constraint:OnDelete:SET NULL" json:"-"`

	Questions []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// Question belongs to a quiz and owns its answer choices.
type Question struct {
	BaseModel

	QuizID   uint   `gorm:"not null;index" json:"quiz_id"`
	Text     string `gorm:"size:1000;not null" json:"text"`
	Position int    `gorm:"not null;default:0" json:"position"`
	ImageID  *uint  `gorm:"index" json:"image_id,omitempty"`
	Image    *Image `gorm:"foreignKey:ImageID;constraint:OnDelete:SET NULL" json:"-"`

	Choices []Choice `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"choices,omitempty"`
}

// Choice is a single answer option of a question.
type Choice struct {
	BaseModel

	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
}
