package cache

import (
	"context"
	"testing"
	"time"

	"github.com/paynotify/internal/config"
)

func TestInitRedisDisabled(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	first, err := MarkOnce(context.Background(), "notify:dedup:x", time.Minute)
	if err != nil || !first {
		t.Fatalf("disabled cache should treat every mark as first, got %v %v", first, err)
	}
	if err := Del(context.Background(), "x"); err != nil {
		t.Fatalf("del on disabled cache failed: %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close on disabled cache failed: %v", err)
	}
}

func TestBuildKey(t *testing.T) {
	Use(nil, "pn")
	if got := BuildKey(" notify:dedup:abc "); got != "pn:notify:dedup:abc" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := BuildKey(""); got != "pn" {
		t.Fatalf("empty key should return prefix, got %s", got)
	}
}
