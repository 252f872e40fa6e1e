// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Score model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition. Visibility rules live in the Visible
// scope so every public read applies the same filter.
//
// Error semantics:
//   - When a score is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - InsertScore(ctx, db, score) -> id, error
//     Appends a score with a UUIDv7 primary key. Never overwrites.
//
//   - TopVisibleScores(ctx, db, limit) -> []domain.Score, error
//     Visible scores ascending by value (lower reaction time ranks higher).
//
//   - ScoresForIdentity / RecentScores / VisibleScoresForIdentity
//     Per-identity history, newest first.
//
//   - VisiblePersonalBest(ctx, db, identity) -> *float64, error
//     Minimum visible value, nil when the identity has none.
//
//   - GetScore, ListPendingScores, CountPendingScores, UpdateReviewStatus
//     Moderation queue reads and the single review mutation.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// Visible restricts a scores query to publicly visible rows: review status
// none or approve, and not flagged unless approved.
func Visible(db *gorm.DB) *gorm.DB {
	return db.
		Where("review_status IN ?", []domain.ReviewStatus{domain.ReviewNone, domain.ReviewApprove}).
		Where("(flagged = ? OR review_status = ?)", false, domain.ReviewApprove)
}

// newestFirst orders by submission time, then by the time-ordered id for
// rows sharing a timestamp.
const newestFirst = "submitted_at DESC, id DESC"

// InsertScore persists s and returns its id. A UUIDv7 id is assigned when s.ID
// is empty; SubmittedAt is normalised to UTC.
func InsertScore(ctx context.Context, db *gorm.DB, s *domain.Score) (string, error) {
	if s.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		s.ID = id.String()
	}
	if s.ReviewStatus == "" {
		s.ReviewStatus = domain.ReviewNone
	}
	s.SubmittedAt = s.SubmittedAt.UTC()
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return "", err
	}
	return s.ID, nil
}

// TopVisibleScores returns up to limit visible scores ordered by value
// ascending. Ties go to the earlier submission.
func TopVisibleScores(ctx context.Context, db *gorm.DB, limit int) ([]domain.Score, error) {
	var out []domain.Score
	err := db.WithContext(ctx).
		Scopes(Visible).
		Order("value ASC, submitted_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ScoresForIdentity returns every score of identity regardless of review
// state, newest first.
func ScoresForIdentity(ctx context.Context, db *gorm.DB, identity string) ([]domain.Score, error) {
	var out []domain.Score
	err := db.WithContext(ctx).
		Where("identity = ?", identity).
		Order(newestFirst).
		Find(&out).Error
	return out, err
}

// RecentScores returns the limit most recent scores of identity regardless of
// review state, ordered submitted_at DESC, id DESC.
func RecentScores(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error) {
	var out []domain.Score
	err := db.WithContext(ctx).
		Where("identity = ?", identity).
		Order(newestFirst).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// VisibleScoresForIdentity returns up to limit visible scores of identity,
// newest first.
func VisibleScoresForIdentity(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error) {
	var out []domain.Score
	err := db.WithContext(ctx).
		Scopes(Visible).
		Where("identity = ?", identity).
		Order(newestFirst).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// VisiblePersonalBest returns the lowest visible value of identity, or nil
// when there is none.
func VisiblePersonalBest(ctx context.Context, db *gorm.DB, identity string) (*float64, error) {
	var vals []float64
	err := db.WithContext(ctx).
		Model(&domain.Score{}).
		Scopes(Visible).
		Where("identity = ?", identity).
		Order("value ASC").
		Limit(1).
		Pluck("value", &vals).Error
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	best := vals[0]
	return &best, nil
}

// GetScore fetches a score by id or returns ErrNotFound.
func GetScore(ctx context.Context, db *gorm.DB, id string) (*domain.Score, error) {
	var s domain.Score
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func pending(db *gorm.DB) *gorm.DB {
	return db.Where("flagged = ? AND review_status = ?", true, domain.ReviewPending)
}

// ListPendingScores returns a page of flagged scores awaiting review, newest
// submission first. The caller computes offset and limit.
func ListPendingScores(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Score, error) {
	var out []domain.Score
	err := db.WithContext(ctx).
		Scopes(pending).
		Order(newestFirst).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPendingScores returns the size of the review queue.
func CountPendingScores(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Score{}).
		Scopes(pending).
		Count(&total).Error
	return total, err
}

// ReviewUpdate carries the only fields a moderator may change on a score.
type ReviewUpdate struct {
	Status     domain.ReviewStatus
	Flagged    bool
	ReviewedAt time.Time
	ReviewedBy string
}

// UpdateReviewStatus applies u to the score identified by id. It returns
// ErrNotFound when no row matches.
func UpdateReviewStatus(ctx context.Context, db *gorm.DB, id string, u ReviewUpdate) error {
	at := u.ReviewedAt.UTC()
	res := db.WithContext(ctx).
		Model(&domain.Score{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"review_status": u.Status,
			"flagged":       u.Flagged,
			"reviewed_at":   &at,
			"reviewed_by":   u.ReviewedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
