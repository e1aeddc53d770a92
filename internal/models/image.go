package models

import "time"

// Image records metadata for an uploaded picture. File bytes live outside the database.
type Image struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UploaderID  uint      `gorm:"not null;index" json:"uploader_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	ContentType string    `gorm:"size:100;not null" json:"content_type"`
	Size        int64     `gorm:"not null" json:"size"`
	Path        string    `gorm:"size:1024;not null" json:"path"`
	CreatedAt   time.Time `json:"created_at"`
}
