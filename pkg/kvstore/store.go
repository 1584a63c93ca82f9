// Package kvstore persists the small per-session values (cart, identity, language) behind a
// string-keyed interface with memory, Redis and SQL backends.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no value is stored under the entry.
var ErrNotFound = errors.New("kvstore: entry not found")

const keyNamespace = "agrigenai"

// Entry names persisted for every session.
const (
	EntryCart     = "cart"
	EntryUser     = "user"
	EntryLanguage = "language"
)

// Store addresses values by session id and entry name. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	Set(ctx context.Context, sessionID, name string, value []byte) error
	Delete(ctx context.Context, sessionID string, names ...string) error
	Ping(ctx context.Context) error
}

// Key renders the fully qualified key of an entry, e.g. agrigenai:session:<id>:cart.
func Key(sessionID, name string) string {
	return strings.Join([]string{keyNamespace, "session", sessionID, name}, ":")
}

func validateAddress(sessionID string, names ...string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("kvstore: session id is required")
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("kvstore: entry name is required")
		}
	}
	return nil
}

// Purger is implemented by backends that keep expired entries until they are read. Redis expires
// keys on its own and does not implement it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
