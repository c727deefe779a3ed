package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ticketbooth/entity"
)

const (
	accessTokenField  = "access_token"
	refreshTokenField = "refresh_token"
)

// RedisStore keeps the pair in a single hash, so a refresh rotates both
// fields in one write.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if rdb == nil {
		panic("missing redis client")
	}
	if key == "" {
		panic("missing session key")
	}

	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (entity.Credentials, error) {
	values, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return entity.Credentials{}, fmt.Errorf("could not read session %s: %w", s.key, err)
	}

	return entity.Credentials{
		AccessToken:  values[accessTokenField],
		RefreshToken: values[refreshTokenField],
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, credentials entity.Credentials) error {
	err := s.rdb.HSet(ctx, s.key,
		accessTokenField, credentials.AccessToken,
		refreshTokenField, credentials.RefreshToken,
	).Err()
	if err != nil {
		return fmt.Errorf("could not store session %s: %w", s.key, err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("could not clear session %s: %w", s.key, err)
	}

	return nil
}
