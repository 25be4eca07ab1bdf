package kvstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/session"
)

const keyPrefix = "dawati:session:"

type redisStore struct {
	client *redis.Client
}

var _ session.Store = (*redisStore)(nil)

// NewRedisStore returns a session store persisted in redis, so tokens
// survive process restarts and are shared between co-located consumers.
func NewRedisStore(conf *core.Config) session.Store {
	return &redisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}),
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", session.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "redis GET %s", key)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.client.Set(ctx, keyPrefix+key, value, 0).Err(), "redis SET %s", key)
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.Del(ctx, keyPrefix+key).Err(), "redis DEL %s", key)
}
