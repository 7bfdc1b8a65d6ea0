package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gourmet-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"github.com/angelmondragon/gourmet-cart/pkg/migrate"
	pkgredis "github.com/angelmondragon/gourmet-cart/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newRepositoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migrate.Up(context.Background(), sqlDB, config.StoreDriverSQLite); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestMemoryStoreCopiesPayloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrStateNotFound)

	payload := []byte(`{"version":1,"items":[]}`)
	require.NoError(t, store.Put(ctx, DefaultKey, payload))
	payload[0] = 'X'

	got, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[]}`, string(got))
	got[0] = 'Y'

	again, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0])
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := NewRepository(newRepositoryDB(t))

	_, err := repo.Get(context.Background(), DefaultKey)
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestRepositoryPutUpserts(t *testing.T) {
	db := newRepositoryDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	if err := repo.Put(ctx, DefaultKey, []byte("first")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := repo.Put(ctx, DefaultKey, []byte("second")); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if err := repo.Put(ctx, "other", []byte("third")); err != nil {
		t.Fatalf("other put: %v", err)
	}

	got, err := repo.Get(ctx, DefaultKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected second, got %q", got)
	}

	var count int64
	if err := db.Table("cart_states").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestRepositoryBacksEngine(t *testing.T) {
	repo := NewRepository(newRepositoryDB(t))
	ctx := context.Background()

	engine := newTestEngine(t, repo)
	_, err := engine.AddItem(ctx, "Fried Rice", 950, "Spice House")
	require.NoError(t, err)
	_, err = engine.AddItem(ctx, "Fried Rice", 950, "Spice House")
	require.NoError(t, err)

	fresh := newTestEngine(t, repo)
	fresh.Load(ctx)
	assert.Equal(t, engine.Snapshot().Items, fresh.Snapshot().Items)
	assert.Equal(t, 2302, int(fresh.Total()))
}

func TestRepositoryWrapsDriverErrors(t *testing.T) {
	db := newRepositoryDB(t)
	repo := NewRepository(db)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = repo.Get(context.Background(), DefaultKey)
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error from get, got %v", err)
	}
	if errors.Is(err, ErrStateNotFound) {
		t.Fatalf("closed database reported as missing state")
	}
	if err := repo.Put(context.Background(), DefaultKey, []byte("x")); !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error from put, got %v", err)
	}
}

type stubRedis struct {
	data   map[string]string
	getErr error
	setErr error
	ttls   map[string]time.Duration
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return value, nil
}

func (s *stubRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *stubRedis) CartStateKey(name string) string {
	return "gc:cart:" + name
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stub := newStubRedis()
	store := &RedisStore{client: stub}

	_, err := store.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, store.Put(ctx, DefaultKey, []byte(`{"version":1,"items":[]}`)))
	assert.Equal(t, `{"version":1,"items":[]}`, stub.data["gc:cart:gourmetCart"])
	assert.Equal(t, time.Duration(0), stub.ttls["gc:cart:gourmetCart"])

	got, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[]}`, string(got))
}

func TestRedisStoreWrapsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cause := errors.New("connection refused")
	store := &RedisStore{client: &stubRedis{getErr: cause, setErr: cause}}

	_, err := store.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStateNotFound)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency), "%v", err)

	err = store.Put(ctx, DefaultKey, []byte("x"))
	assert.ErrorIs(t, err, cause)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency), "%v", err)
}
