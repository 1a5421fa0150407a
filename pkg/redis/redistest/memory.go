// Package redistest provides an in-memory Redis command surface for tests.
package redistest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// ErrUnavailable is returned by every command while the store is failing.
var ErrUnavailable = errors.New("redistest: store unavailable")

// Memory satisfies redis.Cmdable with a map. TTLs are recorded but never
// expire keys.
type Memory struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failing bool
}

func NewMemory() *Memory {
	return &Memory{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

// NewClient returns a storefront redis client over a fresh Memory.
func NewClient() (*redis.Client, *Memory) {
	mem := NewMemory()
	return redis.NewFromCmdable(mem), mem
}

// SetFailing makes every command return ErrUnavailable.
func (m *Memory) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Value returns the raw value at key.
func (m *Memory) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// TTL returns the last expiry set on key.
func (m *Memory) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Keys returns how many keys are stored.
func (m *Memory) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) Ping(context.Context) *goredis.StatusCmd {
	if m.isFailing() {
		return goredis.NewStatusResult("", ErrUnavailable)
	}
	return goredis.NewStatusResult("PONG", nil)
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return goredis.NewStatusResult("", ErrUnavailable)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (m *Memory) Get(_ context.Context, key string) *goredis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return goredis.NewStringResult("", ErrUnavailable)
	}
	v, ok := m.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (m *Memory) SetNX(_ context.Context, key string, value any, ttl time.Duration) *goredis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return goredis.NewBoolResult(false, ErrUnavailable)
	}
	if _, exists := m.data[key]; exists {
		return goredis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (m *Memory) Incr(_ context.Context, key string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return goredis.NewIntResult(0, ErrUnavailable)
	}
	current, _ := strconv.ParseInt(m.data[key], 10, 64)
	current++
	m.data[key] = strconv.FormatInt(current, 10)
	return goredis.NewIntResult(current, nil)
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return goredis.NewBoolResult(false, ErrUnavailable)
	}
	if _, ok := m.data[key]; !ok {
		return goredis.NewBoolResult(false, nil)
	}
	m.ttls[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (m *Memory) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return goredis.NewIntResult(0, ErrUnavailable)
	}
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			removed++
		}
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return goredis.NewIntResult(removed, nil)
}

func (m *Memory) isFailing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failing
}
