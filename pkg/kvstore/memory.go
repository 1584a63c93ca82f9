package kvstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory keeps entries in process. Values do not survive a restart.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory builds an in-process store; ttl <= 0 keeps entries until deleted.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, sessionID, name string) ([]byte, error) {
	if err := validateAddress(sessionID, name); err != nil {
		return nil, err
	}
	key := Key(sessionID, name)

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrNotFound
	}
	if m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
		m.entries[key] = entry
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *Memory) Set(_ context.Context, sessionID, name string, value []byte) error {
	if err := validateAddress(sessionID, name); err != nil {
		return err
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[Key(sessionID, name)] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, sessionID string, names ...string) error {
	if err := validateAddress(sessionID, names...); err != nil {
		return err
	}
	m.mu.Lock()
	for _, name := range names {
		delete(m.entries, Key(sessionID, name))
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

// PurgeExpired drops every expired entry.
func (m *Memory) PurgeExpired(context.Context) (int64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			purged++
		}
	}
	return purged, nil
}
