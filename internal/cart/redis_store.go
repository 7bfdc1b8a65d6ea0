package cart

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	pkgredis "github.com/angelmondragon/gourmet-cart/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartStateKey(name string) string
}

// RedisStore keeps cart state in redis under a namespaced key, without expiry.
type RedisStore struct {
	client redisKV
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.CartStateKey(key))
	if errors.Is(err, pkgredis.ErrNil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis get cart state")
	}
	return []byte(value), nil
}

func (s *RedisStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, s.client.CartStateKey(key), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis set cart state")
	}
	return nil
}
