package models

import "time"

// NotificationMarker records that a one-shot notification was sent. It backs
// deduplication when no Redis is configured.
type NotificationMarker struct {
	Key       string    `gorm:"primaryKey;type:text"`
	ExpiresAt time.Time `gorm:"not null;index"`
}
