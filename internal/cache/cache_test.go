package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("subgraph", "골드", "2")
	b := CacheKey("subgraph", "골드", "2")
	c := CacheKey("subgraph", "골드2", "")

	if a != b {
		t.Error("same inputs must produce the same key")
	}
	if a == c {
		t.Error("part boundaries must affect the key")
	}
	if !strings.HasPrefix(a, KeyPrefix+"subgraph:") {
		t.Errorf("unexpected key %q", a)
	}
}

func testCaches(t *testing.T) map[string]Cache {
	t.Helper()
	dir := t.TempDir()
	return map[string]Cache{
		"memory":  NewMemoryCache(time.Minute, time.Minute),
		"disk":    NewDiskCache(dir+"/disk", time.Minute),
		"layered": NewLayeredCache(NewMemoryCache(time.Minute, time.Minute), NewDiskCache(dir+"/layered", time.Minute)),
	}
}

func TestCache_SetGetDeleteClear(t *testing.T) {
	ctx := context.Background()
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			key := CacheKey("impact", "던전")
			if _, ok := c.Get(ctx, key); ok {
				t.Fatal("expected miss on empty cache")
			}

			if err := c.Set(ctx, key, []byte(`{"0":["던전"]}`), 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
			val, ok := c.Get(ctx, key)
			if !ok || string(val) != `{"0":["던전"]}` {
				t.Fatalf("expected hit, got %q %v", val, ok)
			}

			if err := c.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok := c.Get(ctx, key); ok {
				t.Error("expected miss after delete")
			}
			if err := c.Delete(ctx, key); err != nil {
				t.Errorf("deleting a missing key should not fail: %v", err)
			}

			_ = c.Set(ctx, key, []byte("x"), 0)
			if err := c.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if _, ok := c.Get(ctx, key); ok {
				t.Error("expected miss after clear")
			}
		})
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Minute)

	if err := c.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestLayeredCache_Promotes(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryCache(time.Minute, time.Minute)
	back := NewDiskCache(t.TempDir(), time.Minute)
	c := NewLayeredCache(front, back)

	if err := back.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit from back layer")
	}
	if _, ok := front.Get(ctx, "k"); !ok {
		t.Error("expected back-layer hit to be promoted")
	}
}

func TestNew(t *testing.T) {
	cfg := model.DefaultConfig().Cache

	cfg.Enabled = false
	c, err := New(cfg, logger.Nop())
	if err != nil || c != nil {
		t.Errorf("disabled cache should be nil, got %v %v", c, err)
	}

	cfg.Enabled = true
	cfg.Backend = "memory"
	c, err = New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("expected MemoryCache, got %T", c)
	}

	cfg.Backend = "layered"
	cfg.Dir = t.TempDir()
	c, err = New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*LayeredCache); !ok {
		t.Errorf("expected LayeredCache, got %T", c)
	}

	cfg.Backend = "bogus"
	if _, err := New(cfg, logger.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

// Runs against a real server when ONTOGRAPH_TEST_REDIS_ADDR is set
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("ONTOGRAPH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ONTOGRAPH_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(addr, time.Minute, logger.Nop())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer func() { _ = c.Close() }()

	key := CacheKey("test", t.Name())
	if err := c.Set(ctx, key, []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if val, ok := c.Get(ctx, key); !ok || string(val) != "v" {
		t.Errorf("expected hit, got %q %v", val, ok)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss after clear")
	}
}

func TestNewRedisCache_MissingAddr(t *testing.T) {
	if _, err := NewRedisCache("", time.Minute, nil); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestDiskCache_GroupsByKind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	key := CacheKey("subgraph", "던전", "2")
	if err := c.Set(ctx, key, []byte(`{"found":true}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entries, err := os.ReadDir(dir + "/subgraph")
	if err != nil {
		t.Fatalf("expected a subgraph directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected one entry file, got %d", len(entries))
	}
}

func TestDiskCache_CorruptEntryMisses(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	if err := os.WriteFile(dir+"/short", []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("expected truncated entry to miss")
	}
}
