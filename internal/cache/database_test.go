package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/database/testutil"
	"github.com/charlesng35/quizapi/internal/models"
)

func newTestDatabaseStore(t *testing.T, clock *testClock) *DatabaseStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	return NewDatabaseStore(db, clock.Now)
}

func TestDatabaseStoreSetGetExpiry(t *testing.T) {
	clock := newTestClock()
	store := newTestDatabaseStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quiz:1", []byte("one"), []string{"Quiz:1"}, time.Minute))
	require.NoError(t, store.Set(ctx, "quiz:1", []byte("uno"), []string{"Quiz:1", "Quizzes"}, time.Minute))

	value, ok, err := store.Get(ctx, "quiz:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("uno"), value)

	var tags int64
	require.NoError(t, store.db.Model(&models.CacheTag{}).Count(&tags).Error)
	require.EqualValues(t, 2, tags)

	clock.Advance(time.Minute)
	_, ok, err = store.Get(ctx, "quiz:1")
	require.NoError(t, err)
	require.False(t, ok)

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.NoError(t, store.db.Model(&models.CacheTag{}).Count(&tags).Error)
	require.Zero(t, tags)
}

func TestDatabaseStoreDeleteByTag(t *testing.T) {
	store := newTestDatabaseStore(t, newTestClock())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quiz:1:question:2:choices", []byte("c"), []string{"Question:2", "Quiz:1", "Choice:3"}, time.Minute))
	require.NoError(t, store.Set(ctx, "quiz:5", []byte("q"), []string{"Quiz:5"}, time.Minute))

	require.NoError(t, store.DeleteByTag(ctx, "Choice:3"))
	require.NoError(t, store.DeleteByTag(ctx, "Choice:3"))

	_, ok, err := store.Get(ctx, "quiz:1:question:2:choices")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, "quiz:5")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Delete(ctx, "quiz:5"))
	_, ok, err = store.Get(ctx, "quiz:5")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	clock := newTestClock()
	store := newTestDatabaseStore(t, clock)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "login", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	clock.Advance(10 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "login", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 50*time.Second, ttl)

	clock.Advance(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "login", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestHybridOverDatabaseStore(t *testing.T) {
	clock := newTestClock()
	store := newTestDatabaseStore(t, clock)
	ctx := context.Background()

	writer := NewHybrid(HybridConfig{Distributed: store, Clock: clock.Now})
	reader := NewHybrid(HybridConfig{Distributed: store, Clock: clock.Now})

	require.NoError(t, Set(ctx, writer, "image:5", "png", Options{Tags: []string{"Image:5"}}))

	value, found, err := Get[string](ctx, reader, "image:5")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "png", value)
}
