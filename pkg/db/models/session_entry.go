package models

import "time"

// SessionEntry is one persisted value of a client session (cart, user, language), addressed by
// its fully qualified key.
type SessionEntry struct {
	Key       string     `gorm:"column:entry_key;primaryKey"`
	SessionID string     `gorm:"column:session_id;not null;index:idx_session_entries_session_id"`
	Value     string     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (SessionEntry) TableName() string {
	return "session_entries"
}
