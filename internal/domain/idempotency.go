package domain

import "time"

// Idempotency records the score produced by a previously processed
// submission, keyed by (identity, key). A client retrying POST /score with the
// same Idempotency-Key gets the original score back instead of a second
// submission (and instead of a cooldown rejection).
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Identity  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_identity_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_identity_key,priority:2"`
	ScoreID   string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
