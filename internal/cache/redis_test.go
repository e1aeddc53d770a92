package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreSetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStoreAt(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quiz:1", []byte(`{"id":1}`), []string{"Quiz:1", "Quizzes"}, time.Minute))

	value, ok, err := store.Get(ctx, "quiz:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":1}`, string(value))

	require.True(t, mr.Exists("test:entry:quiz:1"))
	members, err := mr.SMembers("test:tag:Quiz:1")
	require.NoError(t, err)
	require.Equal(t, []string{"quiz:1"}, members)

	mr.FastForward(time.Minute)
	_, ok, err = store.Get(ctx, "quiz:1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "quiz:2", []byte("2"), nil, time.Minute))
	require.NoError(t, store.Delete(ctx, "quiz:2"))
	require.False(t, mr.Exists("test:entry:quiz:2"))
}

func TestRedisStoreDeleteByTag(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStoreAt(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quiz:1", []byte("1"), []string{"Quiz:1"}, time.Minute))
	require.NoError(t, store.Set(ctx, "quiz:1:question:2", []byte("2"), []string{"Question:2", "Quiz:1"}, time.Minute))
	require.NoError(t, store.Set(ctx, "quiz:3", []byte("3"), []string{"Quiz:3"}, time.Minute))

	require.NoError(t, store.DeleteByTag(ctx, "Quiz:1"))
	require.NoError(t, store.DeleteByTag(ctx, "Quiz:1"))

	for _, key := range []string{"quiz:1", "quiz:1:question:2"} {
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.False(t, ok, key)
	}
	_, ok, err := store.Get(ctx, "quiz:3")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, mr.Exists("test:tag:Quiz:1"))
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStoreAt(t, mr.Addr())
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "login:127.0.0.1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	count, _, err = store.IncrementWithTTL(ctx, "login:127.0.0.1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	mr.FastForward(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "login:127.0.0.1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestNewRedisStoreValidatesConnection(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr(), KeyPrefix: "quiz:"})
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), nil, time.Minute))
	require.True(t, mr.Exists("quiz:entry:k"))
	require.NoError(t, store.Close())
}
