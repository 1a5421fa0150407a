package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/redis/redistest"
)

type cachedCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestRememberLoadsOnceThenServesCache(t *testing.T) {
	ctx := context.Background()
	client, _ := redistest.NewClient()
	cache := redis.NewCache(client, nil)
	key := cache.Key("categories")

	calls := 0
	load := func(context.Context) ([]cachedCategory, error) {
		calls++
		return []cachedCategory{{ID: "1", Name: "Phones"}}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := redis.Remember(ctx, cache, key, time.Minute, load)
		if err != nil {
			t.Fatalf("remember failed: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Phones" {
			t.Fatalf("unexpected value %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected loader to run once, ran %d times", calls)
	}

	cache.Invalidate(ctx, key)
	if _, err := redis.Remember(ctx, cache, key, time.Minute, load); err != nil {
		t.Fatalf("remember after invalidate failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", calls)
	}
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	client, mem := redistest.NewClient()
	cache := redis.NewCache(client, nil)
	key := cache.Key("product", "missing")

	_, err := redis.Remember(ctx, cache, key, time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("not found")
	})
	if err == nil {
		t.Fatal("expected loader error")
	}
	if _, ok := mem.Value(key); ok {
		t.Fatal("errors must not be cached")
	}
}

func TestRememberWithoutCacheCallsLoader(t *testing.T) {
	got, err := redis.Remember(context.Background(), nil, "ignored", time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || got != "fresh" {
		t.Fatalf("expected passthrough, got %q %v", got, err)
	}
}

func TestVersionBump(t *testing.T) {
	ctx := context.Background()
	client, _ := redistest.NewClient()
	cache := redis.NewCache(client, nil)

	if v := cache.Version(ctx, "discounts"); v != "0" {
		t.Fatalf("expected initial version 0, got %s", v)
	}
	cache.Bump(ctx, "discounts")
	if v := cache.Version(ctx, "discounts"); v != "1" {
		t.Fatalf("expected version 1 after bump, got %s", v)
	}
}
