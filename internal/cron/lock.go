package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/instance"
)

// fallbackLockTTL covers one hourly cycle plus slack for slow jobs.
const fallbackLockTTL = 90 * time.Minute

// Lock guards a cron cycle so only one worker runs the storefront jobs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockBackend interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock stores "<instance>/<token>" under the lock key. The instance
// prefix shows which worker holds the cycle when inspecting Redis.
type RedisLock struct {
	backend lockBackend
	key     string
	ttl     time.Duration
	holder  string
	token   string
}

// NewRedisLock returns a lock held under key for at most ttl.
func NewRedisLock(backend lockBackend, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case backend == nil:
		return nil, errors.New("cron lock: redis backend required")
	case key == "":
		return nil, errors.New("cron lock: key required")
	}
	if ttl <= 0 {
		ttl = fallbackLockTTL
	}
	return &RedisLock{backend: backend, key: key, ttl: ttl, holder: instance.GetID()}, nil
}

// Key reports the redis key backing the lock.
func (l *RedisLock) Key() string { return l.key }

// Held reports whether this process acquired the lock and has not released it.
func (l *RedisLock) Held() bool { return l.token != "" }

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := l.holder + "/" + uuid.NewString()
	acquired, err := l.backend.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("cron lock %s: %w", l.key, err)
	}
	if !acquired {
		return false, nil
	}
	l.token = token
	return true, nil
}

// Release deletes the key when it still carries this process's token. An
// expired or foreign lock is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if !l.Held() {
		return nil
	}
	token := l.token
	l.token = ""

	current, err := l.backend.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("cron lock %s: read holder: %w", l.key, err)
	case current != token:
		return nil
	}
	if err := l.backend.Del(ctx, l.key); err != nil {
		return fmt.Errorf("cron lock %s: delete: %w", l.key, err)
	}
	return nil
}
