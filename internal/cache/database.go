package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/quizapi/internal/models"
)

// DatabaseStore implements the distributed tier on the primary SQL database. Entries live in
// cache_entries and the tag index in cache_tags.
type DatabaseStore struct {
	db    *gorm.DB
	clock func() time.Time
}

var (
	_ Distributed = (*DatabaseStore)(nil)
	_ Counter     = (*DatabaseStore)(nil)
)

// NewDatabaseStore constructs a database-backed store. clock defaults to time.Now.
func NewDatabaseStore(db *gorm.DB, clock func() time.Time) *DatabaseStore {
	if db == nil {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &DatabaseStore{db: db, clock: clock}
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errors.New("cache: database store not initialised")
	}

	var entry models.CacheEntry
	err := s.db.WithContext(ensuredContext(ctx)).Where(map[string]any{"key": key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !s.clock().Before(entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set upserts the entry and replaces its tag rows inside one transaction.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if ttl <= 0 {
		ttl = defaultDistributedTTL
	}

	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.clock().Add(ttl),
	}

	return s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return err
		}

		if err := tx.Where(map[string]any{"key": key}).Delete(&models.CacheTag{}).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}

		rows := make([]models.CacheTag, 0, len(tags))
		for _, tag := range tags {
			rows = append(rows, models.CacheTag{Tag: tag, Key: key})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// Delete removes keys and their tag rows.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		return deleteKeys(tx, keys)
	})
}

// DeleteByTag removes every entry registered under any of the tags.
func (s *DatabaseStore) DeleteByTag(ctx context.Context, tags ...string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if len(tags) == 0 {
		return nil
	}

	return s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var keys []string
		if err := tx.Model(&models.CacheTag{}).Where(map[string]any{"tag": tags}).Distinct().Pluck("key", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where(map[string]any{"tag": tags}).Delete(&models.CacheTag{}).Error; err != nil {
			return err
		}
		return deleteKeys(tx, keys)
	})
}

// PurgeExpired removes expired entries and their tag rows, returning the number of entries removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}

	var removed int64
	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var keys []string
		if err := tx.Model(&models.CacheEntry{}).Where("expires_at <= ?", s.clock()).Pluck("key", &keys).Error; err != nil {
			return err
		}
		removed = int64(len(keys))
		return deleteKeys(tx, keys)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// IncrementWithTTL atomically increments a counter for the supplied key.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database store not initialised")
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()
	key = "counter:" + key

	var (
		count  int64
		expiry time.Time
	)

	err := s.db.WithContext(ensuredContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		// Acquire row-level lock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(map[string]any{"key": key}).Take(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			count = 1
			expiry = now.Add(window)
			entry = models.CacheEntry{
				Key:       key,
				Value:     []byte("1"),
				ExpiresAt: expiry,
			}
			return tx.Create(&entry).Error
		}
		if err != nil {
			return err
		}

		if !now.Before(entry.ExpiresAt) {
			count = 1
			entry.ExpiresAt = now.Add(window)
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = current + 1
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))
		expiry = entry.ExpiresAt

		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

func deleteKeys(tx *gorm.DB, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := tx.Where(map[string]any{"key": keys}).Delete(&models.CacheTag{}).Error; err != nil {
		return err
	}
	return tx.Where(map[string]any{"key": keys}).Delete(&models.CacheEntry{}).Error
}
