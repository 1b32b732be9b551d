// Package redisstore keeps the persisted session in Redis so that several client
// processes on different machines can share one login.
package redisstore

import (
	"context"
	"time"

	"github.com/jrsteele09/go-foodscore/kvstore"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const callTimeout = 5 * time.Second

var _ kvstore.Repo = (*Store)(nil)

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL expires every stored key after ttl. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client *redis.Client, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	s := &Store{client: client}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Open parses dsn, configures a small pool and pings the server
func Open(ctx context.Context, dsn string, options ...Option) (*Store, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.Open] ParseURL")
	}
	opt.PoolSize = 4
	opt.MinIdleConns = 1
	opt.DialTimeout = callTimeout
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "[redisstore.Open] Ping")
	}
	return New(client, options...)
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[redisstore.Get]")
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("[redisstore.Set] key cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Set]")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefix + key
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Delete]")
	}
	return nil
}
