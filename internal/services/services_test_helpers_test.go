package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/database/testutil"
	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
)

// recordingCache logs the side effects issued by write paths in order.
type recordingCache struct {
	*cache.Hybrid
	mu  sync.Mutex
	ops []string
}

func (r *recordingCache) RemoveByTag(ctx context.Context, tags ...string) error {
	r.record("invalidate")
	return r.Hybrid.RemoveByTag(ctx, tags...)
}

func (r *recordingCache) SetBytes(ctx context.Context, key string, value []byte, opts cache.Options) error {
	r.record("reseed")
	return r.Hybrid.SetBytes(ctx, key, value, opts)
}

func (r *recordingCache) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recordingCache) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *recordingCache) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

type recordingEvictor struct {
	cache   *recordingCache
	out     *cache.OutputCache
	evicted []string
}

func (e *recordingEvictor) EvictByTag(ctx context.Context, tag string) error {
	e.cache.record("evict")
	e.evicted = append(e.evicted, tag)
	return e.out.EvictByTag(ctx, tag)
}

type testEnv struct {
	store     *repository.Store
	cache     *recordingCache
	output    *cache.OutputCache
	evictor   *recordingEvictor
	quizzes   *QuizService
	questions *QuestionService
	choices   *ChoiceService
	images    *ImageService
	likes     *LikeService
	users     *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := repository.New(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()))
	require.NoError(t, err)

	rec := &recordingCache{Hybrid: cache.NewHybrid(cache.HybridConfig{})}
	out := cache.NewOutputCache(cache.OutputCacheConfig{})
	evictor := &recordingEvictor{cache: rec, out: out}

	env := &testEnv{store: store, cache: rec, output: out, evictor: evictor}
	env.quizzes, err = NewQuizService(store, rec, evictor)
	require.NoError(t, err)
	env.questions, err = NewQuestionService(store, rec, evictor)
	require.NoError(t, err)
	env.choices, err = NewChoiceService(store, rec, evictor)
	require.NoError(t, err)
	env.images, err = NewImageService(store, rec, evictor)
	require.NoError(t, err)
	env.likes, err = NewLikeService(store, rec, evictor)
	require.NoError(t, err)
	env.users, err = NewUserService(store, rec)
	require.NoError(t, err)
	return env
}

func (e *testEnv) seedUser(t *testing.T, username, role string) Actor {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "hash", Role: role}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return Actor{UserID: user.ID, Role: user.Role}
}
