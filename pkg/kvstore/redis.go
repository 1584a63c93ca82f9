package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/agrigenai/agrigen-backend/pkg/redis"
)

// Redis stores each entry as a plain string value. Reads and writes both reset the TTL, so an entry
// expires ttl after the session last touched it.
type Redis struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedis(client *pkgredis.Client, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	if err := validateAddress(sessionID, name); err != nil {
		return nil, err
	}
	value, err := r.client.Touch(ctx, r.client.SessionEntryKey(sessionID, name), r.ttl)
	if errors.Is(err, pkgredis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}
	return []byte(value), nil
}

func (r *Redis) Set(ctx context.Context, sessionID, name string, value []byte) error {
	if err := validateAddress(sessionID, name); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.client.SessionEntryKey(sessionID, name), string(value), r.ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, sessionID string, names ...string) error {
	if err := validateAddress(sessionID, names...); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.client.SessionEntryKeys(sessionID, names...)...); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
