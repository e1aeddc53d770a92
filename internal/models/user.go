package models

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User is an account that authors quizzes and likes them.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"size:32;not null;default:User" json:"role"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsAdmin reports whether the user may manage content owned by others.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
