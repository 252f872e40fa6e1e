// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
)

// ScoresStats returns the number of visible scores and the greatest UpdatedAt
// across all scores. Moderation bumps UpdatedAt, so a review that changes
// visibility also changes the pair.
//
// Return values:
//   - count:        visible scores
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ScoresStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = db.WithContext(ctx).Model(&domain.Score{}).Scopes(Visible).Count(&count).Error; err != nil {
		return 0, nil, err
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var rows []struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Score{}).
		Select("updated_at").Order("updated_at DESC").Limit(1).
		Scan(&rows).Error; err != nil {
		return 0, nil, err
	}
	if len(rows) == 0 {
		return count, nil, nil
	}
	return count, &rows[0].UpdatedAt, nil
}
