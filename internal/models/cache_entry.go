package models

import (
	"time"
)

// CacheEntry represents a value held by the database-backed distributed cache tier.
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CacheTag links a cache key to one of its invalidation tags.
type CacheTag struct {
	Tag string `gorm:"primaryKey;size:128"`
	Key string `gorm:"primaryKey;size:256;index"`
}
