package kvstore

import "context"

// Bucket is a Store view bound to one session id.
type Bucket struct {
	store     Store
	sessionID string
}

func NewBucket(store Store, sessionID string) *Bucket {
	return &Bucket{store: store, sessionID: sessionID}
}

func (b *Bucket) SessionID() string {
	return b.sessionID
}

func (b *Bucket) Get(ctx context.Context, name string) ([]byte, error) {
	return b.store.Get(ctx, b.sessionID, name)
}

func (b *Bucket) Set(ctx context.Context, name string, value []byte) error {
	return b.store.Set(ctx, b.sessionID, name, value)
}

func (b *Bucket) Delete(ctx context.Context, names ...string) error {
	return b.store.Delete(ctx, b.sessionID, names...)
}
