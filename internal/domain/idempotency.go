package domain

import "time"

// Idempotency records a completed submission, keyed by (email, key). It lets
// the submit endpoint safely deduplicate client retries: a replay within the
// TTL returns the originally created request instead of spawning a second
// generation pipeline for the same trip.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Email     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_email_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_email_key,priority:2"`
	RequestID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
