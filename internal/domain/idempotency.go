package domain

import "time"

// Idempotency represents a recorded result of a previously processed request
// submission, keyed by (user_id, guild_id, key). It enables safe retries of
// POST submissions by returning the originally created request without
// enqueueing a second generation.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_guild_key,priority:1"`
	GuildID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_guild_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_guild_key,priority:3"`
	RequestID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
