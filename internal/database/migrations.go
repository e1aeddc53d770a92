package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/pkg/crypto"
)

// SeedOptions describes the bootstrap administrator. An empty username disables seeding.
type SeedOptions struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Image{},
		&models.Quiz{},
		&models.Question{},
		&models.Choice{},
		&models.Like{},
		&models.RefreshToken{},
		&models.CacheEntry{},
		&models.CacheTag{},
	)
}

// SeedData creates the configured administrator account when it does not exist yet.
func SeedData(db *gorm.DB, opts SeedOptions) error {
	username := strings.TrimSpace(opts.AdminUsername)
	if username == "" {
		return nil
	}
	if opts.AdminPassword == "" {
		return errors.New("admin password is required when an admin username is configured")
	}

	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		email = username + "@localhost"
	}

	var existing int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}

	return db.Create(&models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     models.RoleAdmin,
	}).Error
}
