package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}
	if mock.expireCalls[0].key != "agrigenai:rate_limit:login:ip:1.2.3.4" {
		t.Fatalf("unexpected rate limit key %s", mock.expireCalls[0].key)
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestSessionEntryLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.SessionEntryKey("sess-1", "cart")
	if err := client.Set(ctx, key, `[{"id":"a"}]`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != `[{"id":"a"}]` {
		t.Fatalf("unexpected stored value %q", value)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil after delete, got %v", err)
	}
}

func TestTouchResetsTTL(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.SessionEntryKey("sess-1", "language")
	if err := client.Set(ctx, key, "kn", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Touch(ctx, key, time.Hour)
	if err != nil || value != "kn" {
		t.Fatalf("unexpected touch result %q err=%v", value, err)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != time.Hour {
		t.Fatalf("expected ttl reset, got %+v", mock.expireCalls)
	}

	if _, err := client.Touch(ctx, key, 0); err != nil {
		t.Fatalf("touch without ttl failed: %v", err)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("non-positive ttl should behave like get")
	}
	if _, err := client.Touch(ctx, client.SessionEntryKey("sess-1", "cart"), time.Hour); !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil for missing key, got %v", err)
	}
}

func TestSessionEntryKeys(t *testing.T) {
	client := &Client{}
	keys := client.SessionEntryKeys("abc", "cart", "user")
	if len(keys) != 2 || keys[0] != "agrigenai:session:abc:cart" || keys[1] != "agrigenai:session:abc:user" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestSetNXOnlyWritesOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "agrigenai:lock:job", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "agrigenai:lock:job", "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to be refused, ok=%v err=%v", ok, err)
	}
	if value, _ := client.Get(ctx, "agrigenai:lock:job"); value != "owner-1" {
		t.Fatalf("lock owner overwritten: %s", value)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.RateLimitKey("scope"); got != "agrigenai:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.SessionEntryKey("abc", "user"); got != "agrigenai:session:abc:user" {
		t.Fatalf("unexpected session entry key %s", got)
	}
	if got := client.LockKey("housekeeping"); got != "agrigenai:lock:housekeeping" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.SessionEntryKey("abc", ""); got != "agrigenai:session:abc" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on uninitialized client should be a no-op, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 3 {
		t.Fatalf("unexpected parsed options %+v", opts)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) GetEx(ctx context.Context, key string, expiration time.Duration) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
