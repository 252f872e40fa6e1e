package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/repo"
)

// ScoreStore defines the persistence contract required by LeaderboardService
// and ReviewService. Not-found lookups return repo.ErrNotFound.
type ScoreStore interface {
	// InsertScore appends a score and returns its id. It never overwrites.
	InsertScore(ctx context.Context, db *gorm.DB, s *domain.Score) (string, error)

	// TopVisibleScores returns visible scores ordered by value ascending.
	TopVisibleScores(ctx context.Context, db *gorm.DB, limit int) ([]domain.Score, error)

	// ScoresForIdentity returns every score of identity, any review state.
	ScoresForIdentity(ctx context.Context, db *gorm.DB, identity string) ([]domain.Score, error)

	// RecentScores returns the newest limit scores of identity, any review
	// state, ordered submitted_at DESC then id DESC.
	RecentScores(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error)

	// VisibleScoresForIdentity returns the newest limit visible scores of identity.
	VisibleScoresForIdentity(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error)

	// VisiblePersonalBest returns the minimum visible value, or nil.
	VisiblePersonalBest(ctx context.Context, db *gorm.DB, identity string) (*float64, error)

	// GetScore fetches a score by id.
	GetScore(ctx context.Context, db *gorm.DB, id string) (*domain.Score, error)

	// ListPendingScores returns a page of the review queue, newest first.
	ListPendingScores(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Score, error)

	// CountPendingScores returns the review queue size.
	CountPendingScores(ctx context.Context, db *gorm.DB) (int64, error)

	// UpdateReviewStatus applies a moderation decision.
	UpdateReviewStatus(ctx context.Context, db *gorm.DB, id string, u repo.ReviewUpdate) error
}

// UserDirectory resolves player profiles. Both lookups return
// ErrUserNotFound when nothing matches.
type UserDirectory interface {
	FindByIdentity(ctx context.Context, identity string) (*domain.User, error)
	FindByToken(ctx context.Context, token string) (*domain.User, error)
}
