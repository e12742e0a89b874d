package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// memRedis answers Set and Get from a map, recording expirations.
type memRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemRedis() *memRedis {
	return &memRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return map[string]Store{
		"file":  fileStore,
		"redis": newRedisStore(newMemRedis(), RedisConfig{TTL: time.Hour}),
	}
}

func TestPutGet(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payload := []byte("%PDF-1.7 generated")
			key, err := s.Put(ctx, "w9 form.pdf", payload)
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if !strings.HasSuffix(key, "-w9_form.pdf") {
				t.Fatalf("unexpected key %q", key)
			}
			got, err := s.Get(ctx, key)
			if err != nil || !bytes.Equal(got, payload) {
				t.Fatalf("Get = %q, %v", got, err)
			}

			other, err := s.Put(ctx, "w9 form.pdf", payload)
			if err != nil || other == key {
				t.Fatalf("second Put returned %q, %v", other, err)
			}
		})
	}
}

func TestGetErrors(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Get(ctx, "0192-missing.pdf"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			for _, key := range []string{"", "../etc/passwd", "a/b", ".hidden"} {
				if _, err := s.Get(ctx, key); !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("Get(%q): expected ErrInvalidKey, got %v", key, err)
				}
			}
		})
	}
}

func TestRedisStoreUsesPrefixAndTTL(t *testing.T) {
	mem := newMemRedis()
	s := newRedisStore(mem, RedisConfig{Prefix: "test:", TTL: 10 * time.Minute})
	key, err := s.Put(context.Background(), "", []byte("x"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasSuffix(key, "-document.pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if ttl, ok := mem.ttls["test:"+key]; !ok || ttl != 10*time.Minute {
		t.Fatalf("expected 10m TTL under prefixed key, got %v (%v)", ttl, ok)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, _, err := NewRedisStore(RedisConfig{URL: "http://localhost"}); err == nil {
		t.Fatalf("expected error for non-redis URL")
	}
}
