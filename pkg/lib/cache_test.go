package lib_test

import (
	"testing"
	"time"

	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rs/zerolog"
)

func TestCache(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("set and get", func(t *testing.T) {
		cache := lib.NewCache(time.Minute, &logger)

		cache.Set("key", "value")

		got, ok := cache.Get("key")
		if !ok {
			t.Fatal("expected cache hit")
		}
		if got != "value" {
			t.Errorf("expected value, got %v", got)
		}
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		cache := lib.NewCache(time.Minute, &logger)

		if _, ok := cache.Get("missing"); ok {
			t.Error("expected cache miss")
		}
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		cache := lib.NewCache(20*time.Millisecond, &logger)

		cache.Set("key", "value")
		time.Sleep(30 * time.Millisecond)

		if _, ok := cache.Get("key"); ok {
			t.Error("expected expired entry to miss")
		}
	})

	t.Run("delete removes entry", func(t *testing.T) {
		cache := lib.NewCache(time.Minute, &logger)

		cache.Set("key", "value")
		cache.Delete("key")

		if _, ok := cache.Get("key"); ok {
			t.Error("expected deleted entry to miss")
		}
	})

	t.Run("clear removes all entries", func(t *testing.T) {
		cache := lib.NewCache(time.Minute, &logger)

		cache.Set("a", 1)
		cache.Set("b", 2)
		cache.Clear()

		if _, ok := cache.Get("a"); ok {
			t.Error("expected cleared entry to miss")
		}
		if _, ok := cache.Get("b"); ok {
			t.Error("expected cleared entry to miss")
		}
	})

	t.Run("set overwrites existing value", func(t *testing.T) {
		cache := lib.NewCache(time.Minute, &logger)

		cache.Set("key", "old")
		cache.Set("key", "new")

		got, ok := cache.Get("key")
		if !ok {
			t.Fatal("expected cache hit")
		}
		if got != "new" {
			t.Errorf("expected new, got %v", got)
		}
	})
}

func TestHashParams(t *testing.T) {
	if lib.HashParams("a", "b") != lib.HashParams("a", "b") {
		t.Error("expected identical params to hash to the same key")
	}

	if lib.HashParams("a", "b") == lib.HashParams("b", "a") {
		t.Error("expected param order to change the key")
	}

	if len(lib.HashParams("a")) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(lib.HashParams("a")))
	}
}
