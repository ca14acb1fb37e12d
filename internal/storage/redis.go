package storage

import (
	"context"
	"errors"
	"time"

	perrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/supabase/integrations/internal/conf"
)

// RedisStore keeps values in Redis with native key expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore parses the cache URL, opens a client and, when configured,
// checks the server is reachable.
func NewRedisStore(config *conf.CacheConfiguration) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, perrors.Wrap(err, "parsing redis url")
	}
	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	client := redis.NewClient(opts)

	if config.PingOnDial {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, perrors.Wrap(err, "checking redis connection")
		}
	}

	return &RedisStore{client: client, prefix: config.KeyPrefix}, nil
}

func (s *RedisStore) k(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.k(key), value, ttl).Err(); err != nil {
		return perrors.Wrapf(err, "redis set %q", key)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.k(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, perrors.Wrapf(err, "redis get %q", key)
	}
	return value, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.k(key)).Err(); err != nil {
		return perrors.Wrapf(err, "redis del %q", key)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
