// Package services – ReviewService
//
// This file implements the moderation workflow. Flagged scores wait in the
// pending queue until a moderator approves them (they become visible) or
// denies them (they stay hidden and flagged). Re-applying the current
// decision is a no-op; switching a decided score to the other decision is
// allowed and simply overwrites it.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/repo"
	"github.com/tbourn/reaction-leaderboard/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Review actions accepted by Resolve.
const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// ReviewService exposes the pending queue and applies moderator decisions.
type ReviewService struct {
	DB    *gorm.DB
	Store ScoreStore
	// Now is the clock used to stamp decisions; nil means time.Now.
	Now func() time.Time
}

// ParseAction validates a review action. Values are matched exactly; anything
// other than approve or deny yields ErrInvalidAction.
func ParseAction(raw string) (string, error) {
	switch raw {
	case ActionApprove, ActionDeny:
		return raw, nil
	default:
		return "", ErrInvalidAction
	}
}

// ListPending returns a page of flagged scores awaiting review, newest
// submission first, together with the total queue size.
func (s *ReviewService) ListPending(ctx context.Context, page, pageSize int) ([]domain.Score, int64, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "ListPending",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := utils.Offset(page, pageSize)

	total, err := s.Store.CountPendingScores(ctx, s.DB)
	if err != nil {
		return nil, 0, unavailable(err)
	}
	if total == 0 {
		return []domain.Score{}, 0, nil
	}
	items, err := s.Store.ListPendingScores(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, unavailable(err)
	}
	return items, total, nil
}

// ScoresFor returns every score of identity, including flagged and denied
// ones, newest first. It backs the moderator's per-player view.
func (s *ReviewService) ScoresFor(ctx context.Context, identity string) ([]domain.Score, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "ScoresFor",
		trace.WithAttributes(attribute.String("user.id", identity)),
	)
	defer span.End()

	items, err := s.Store.ScoresForIdentity(ctx, s.DB, identity)
	if err != nil {
		return nil, unavailable(err)
	}
	return items, nil
}

// Resolve applies action to the score identified by id on behalf of reviewer
// and returns the updated record.
//
// approve: review_status=approve, flagged=false, reviewed_at stamped.
// deny:    review_status=deny, flagged left as is, reviewed_at stamped.
//
// Errors: ErrInvalidAction, ErrScoreNotFound, ErrStoreUnavailable.
func (s *ReviewService) Resolve(ctx context.Context, id, action, reviewer string) (*domain.Score, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("score.id", id),
			attribute.String("review.action", action),
		),
	)
	defer span.End()

	act, err := ParseAction(action)
	if err != nil {
		return nil, err
	}

	var out *domain.Score
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.Store.GetScore(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrScoreNotFound
			}
			return unavailable(err)
		}

		target := domain.ReviewStatus(act)
		if cur.ReviewStatus == target {
			out = cur
			return nil
		}

		u := repo.ReviewUpdate{
			Status:     target,
			Flagged:    cur.Flagged,
			ReviewedAt: s.now().UTC(),
			ReviewedBy: reviewer,
		}
		if target == domain.ReviewApprove {
			u.Flagged = false
		}
		if err := s.Store.UpdateReviewStatus(ctx, tx, id, u); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrScoreNotFound
			}
			return unavailable(err)
		}

		cur.ReviewStatus = u.Status
		cur.Flagged = u.Flagged
		at := u.ReviewedAt
		cur.ReviewedAt = &at
		cur.ReviewedBy = reviewer
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	reviewsResolved.WithLabelValues(act).Inc()
	log.Info().
		Str("score_id", id).
		Str("action", act).
		Str("reviewer", reviewer).
		Msg("score review resolved")
	return out, nil
}

func (s *ReviewService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
