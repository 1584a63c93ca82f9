package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrigenai/agrigen-backend/pkg/db"
	"github.com/agrigenai/agrigen-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL keeps entries in the session_entries table. Expired rows are dropped lazily on read.
type SQL struct {
	client *db.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewSQL(client *db.Client, ttl time.Duration) (*SQL, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	return &SQL{client: client, ttl: ttl, now: time.Now}, nil
}

func (s *SQL) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	if err := validateAddress(sessionID, name); err != nil {
		return nil, err
	}
	key := Key(sessionID, name)

	var value []byte
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var entry models.SessionEntry
		if err := tx.Where("entry_key = ?", key).Take(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		now := s.now().UTC()
		if entry.ExpiresAt != nil && !now.Before(*entry.ExpiresAt) {
			if err := tx.Where("entry_key = ?", key).Delete(&models.SessionEntry{}).Error; err != nil {
				return err
			}
			return ErrNotFound
		}
		value = []byte(entry.Value)
		if s.ttl <= 0 {
			return nil
		}
		return tx.Model(&models.SessionEntry{}).Where("entry_key = ?", key).Update("expires_at", now.Add(s.ttl)).Error
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sql get %s: %w", name, err)
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, sessionID, name string, value []byte) error {
	if err := validateAddress(sessionID, name); err != nil {
		return err
	}
	now := s.now().UTC()
	entry := models.SessionEntry{
		Key:       Key(sessionID, name),
		SessionID: sessionID,
		Value:     string(value),
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		expires := now.Add(s.ttl)
		entry.ExpiresAt = &expires
	}

	err := s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("sql set %s: %w", name, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, sessionID string, names ...string) error {
	if err := validateAddress(sessionID, names...); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, Key(sessionID, name))
	}
	err := s.client.DB().WithContext(ctx).
		Where("entry_key IN ?", keys).
		Delete(&models.SessionEntry{}).Error
	if err != nil {
		return fmt.Errorf("sql delete: %w", err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *SQL) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.SessionEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("sql purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}
