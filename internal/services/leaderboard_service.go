// Package services – LeaderboardService
//
// This file implements LeaderboardService, the orchestrator of the score
// pipeline. A submission is validated, checked against the per-identity
// cooldown, evaluated by the anomaly detector against the identity's history,
// persisted with its flag metadata and announced to other players. Reads
// (top scores, personal best, history) only ever see visible scores.
//
// Observability: all public methods are OpenTelemetry-instrumented and
// submissions are counted by outcome in Prometheus.
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/reaction-leaderboard/internal/anomaly"
	"github.com/tbourn/reaction-leaderboard/internal/cooldown"
	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/notify"
	"github.com/tbourn/reaction-leaderboard/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTopLimit      = 10
	defaultHistoryWindow = 10
)

// Evaluator decides whether a candidate score looks implausible.
type Evaluator interface {
	Evaluate(identity string, candidate float64, personalBest *float64, recent []float64) anomaly.Decision
}

// Notifier relays accepted scores to other observers. Publish must not block;
// a false return means the event was dropped.
type Notifier interface {
	Publish(e notify.Event) bool
}

// PublicScore is the sanitized view of a score. Flag and review metadata are
// never part of it.
type PublicScore struct {
	ID       string  `json:"-"`
	Identity string  `json:"name"     example:"ann"`
	Value    float64 `json:"score"    example:"231"`
	Date     string  `json:"date"     example:"2025-03-01"`
	Location string  `json:"location" example:"Lisbon, Portugal"`
}

// RankedScore is a PublicScore with its 1-based leaderboard position.
type RankedScore struct {
	Rank int `json:"rank" example:"1"`
	PublicScore
}

// LeaderboardService coordinates submission and ranking.
type LeaderboardService struct {
	DB    *gorm.DB
	Store ScoreStore
	Users UserDirectory

	Limiter  cooldown.Limiter
	Detector Evaluator
	Notifier Notifier // optional

	// HistoryWindow is the number of recent scores fed to Detector.
	HistoryWindow int
	// DefaultLimit is the TopScores size for a non-positive n; zero means 10.
	DefaultLimit int
	// MaxLimit caps TopScores; zero means no cap.
	MaxLimit int
	// IdempotencyTTL bounds how long a submission key can be replayed.
	IdempotencyTTL time.Duration
}

// Submit runs the submission pipeline for identity at now:
// validate, cooldown, anomaly check, persist, announce. It returns the
// sanitized view of the stored score.
//
// Errors:
//   - ErrInvalidScore for non-positive, NaN or infinite values (store untouched).
//   - *RateLimitError (errors.Is ErrRateLimited) when the cooldown has not
//     elapsed (store untouched).
//   - ErrStoreUnavailable wrapping any store, directory or cooldown backend failure.
func (s *LeaderboardService) Submit(ctx context.Context, identity string, value float64, now time.Time) (*PublicScore, error) {
	tr := otel.Tracer("services/LeaderboardService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", identity),
			attribute.Float64("score.value", value),
		),
	)
	defer span.End()

	if !(value > 0) || math.IsInf(value, 0) {
		scoresSubmitted.WithLabelValues(outcomeInvalid).Inc()
		return nil, ErrInvalidScore
	}

	d, err := s.Limiter.Allow(ctx, identity, now)
	if err != nil {
		return nil, s.submitFailed(span, "cooldown check", identity, err)
	}
	if !d.Allowed {
		scoresSubmitted.WithLabelValues(outcomeRateLimited).Inc()
		span.SetAttributes(attribute.Int64("retry_after_ms", d.RetryAfter.Milliseconds()))
		log.Warn().Str("user", identity).Dur("retry_after", d.RetryAfter).Msg("score rejected by cooldown")
		return nil, &RateLimitError{RetryAfter: d.RetryAfter}
	}

	pb, err := s.Store.VisiblePersonalBest(ctx, s.DB, identity)
	if err != nil {
		return nil, s.submitFailed(span, "personal best", identity, err)
	}
	recent, err := s.Store.RecentScores(ctx, s.DB, identity, s.historyWindow())
	if err != nil {
		return nil, s.submitFailed(span, "recent history", identity, err)
	}
	history := make([]float64, len(recent))
	for i, r := range recent {
		history[i] = r.Value
	}

	decision := s.Detector.Evaluate(identity, value, pb, history)

	location := ""
	if s.Users != nil {
		u, err := s.Users.FindByIdentity(ctx, identity)
		switch {
		case err == nil:
			location = u.Location
		case errors.Is(err, ErrUserNotFound):
		default:
			return nil, s.submitFailed(span, "user lookup", identity, err)
		}
	}

	at := now.UTC()
	score := &domain.Score{
		Identity:     identity,
		Value:        value,
		SubmittedAt:  at,
		DisplayDate:  at.Format(domain.DisplayDateLayout),
		Location:     location,
		ReviewStatus: domain.ReviewNone,
	}
	if decision.Flagged {
		reason := decision.Reason
		score.Flagged = true
		score.FlagReason = &reason
		score.ReviewStatus = domain.ReviewPending
	}

	if _, err := s.Store.InsertScore(ctx, s.DB, score); err != nil {
		return nil, s.submitFailed(span, "insert", identity, err)
	}

	span.SetAttributes(attribute.String("score.id", score.ID), attribute.Bool("score.flagged", decision.Flagged))
	if decision.Flagged {
		scoresSubmitted.WithLabelValues(outcomeFlagged).Inc()
		scoresFlagged.WithLabelValues(decision.Heuristic).Inc()
		log.Warn().
			Str("user", identity).
			Str("score_id", score.ID).
			Float64("score", value).
			Str("heuristic", decision.Heuristic).
			Str("reason", decision.Reason).
			Msg("score flagged for review")
	} else {
		scoresSubmitted.WithLabelValues(outcomeAccepted).Inc()
		log.Info().Str("user", identity).Str("score_id", score.ID).Float64("score", value).Msg("score accepted")
	}

	if s.Notifier != nil && !s.Notifier.Publish(notify.Event{Identity: identity, Score: value, At: at}) {
		log.Warn().Str("user", identity).Msg("score event not relayed")
	}

	return toPublic(score), nil
}

// TopScores returns up to n visible scores ranked ascending by value. A
// non-positive n means DefaultLimit; n is capped at MaxLimit when set.
func (s *LeaderboardService) TopScores(ctx context.Context, n int) ([]RankedScore, error) {
	tr := otel.Tracer("services/LeaderboardService")
	ctx, span := tr.Start(ctx, "TopScores")
	defer span.End()

	if n <= 0 {
		n = s.DefaultLimit
	}
	if n <= 0 {
		n = defaultTopLimit
	}
	if s.MaxLimit > 0 && n > s.MaxLimit {
		n = s.MaxLimit
	}
	span.SetAttributes(attribute.Int("limit", n))

	rows, err := s.Store.TopVisibleScores(ctx, s.DB, n)
	if err != nil {
		return nil, s.failed(span, "top scores", "", err)
	}
	out := make([]RankedScore, len(rows))
	for i := range rows {
		out[i] = RankedScore{Rank: i + 1, PublicScore: *toPublic(&rows[i])}
	}
	return out, nil
}

// PersonalBest returns the minimum visible value of identity, or nil when the
// identity has no visible scores.
func (s *LeaderboardService) PersonalBest(ctx context.Context, identity string) (*float64, error) {
	tr := otel.Tracer("services/LeaderboardService")
	ctx, span := tr.Start(ctx, "PersonalBest",
		trace.WithAttributes(attribute.String("user.id", identity)),
	)
	defer span.End()

	pb, err := s.Store.VisiblePersonalBest(ctx, s.DB, identity)
	if err != nil {
		return nil, s.failed(span, "personal best", identity, err)
	}
	return pb, nil
}

// History returns the identity's newest visible scores, at most limit
// (default HistoryWindow).
func (s *LeaderboardService) History(ctx context.Context, identity string, limit int) ([]PublicScore, error) {
	tr := otel.Tracer("services/LeaderboardService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(attribute.String("user.id", identity)),
	)
	defer span.End()

	if limit <= 0 {
		limit = s.historyWindow()
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	rows, err := s.Store.VisibleScoresForIdentity(ctx, s.DB, identity, limit)
	if err != nil {
		return nil, s.failed(span, "history", identity, err)
	}
	out := make([]PublicScore, len(rows))
	for i := range rows {
		out[i] = *toPublic(&rows[i])
	}
	return out, nil
}

// Replay returns the score previously stored under (identity, key), if the
// key is still live. A miss or a lookup failure reports false; the caller
// then processes the request normally.
func (s *LeaderboardService) Replay(ctx context.Context, identity, key string, now time.Time) (*PublicScore, bool) {
	if key == "" || s.DB == nil {
		return nil, false
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, identity, key, now)
	if err != nil || rec == nil {
		return nil, false
	}
	prev, err := s.Store.GetScore(ctx, s.DB, rec.ScoreID)
	if err != nil {
		return nil, false
	}
	scoresSubmitted.WithLabelValues(outcomeReplayed).Inc()
	return toPublic(prev), true
}

// Remember records that (identity, key) produced scoreID. It is best effort:
// a concurrent duplicate is ignored and other failures are only logged.
func (s *LeaderboardService) Remember(ctx context.Context, identity, key, scoreID string) {
	if key == "" || s.DB == nil {
		return
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, identity, key, scoreID, 200, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Warn().Err(err).Str("user", identity).Msg("idempotency record not stored")
	}
}

func (s *LeaderboardService) historyWindow() int {
	if s.HistoryWindow > 0 {
		return s.HistoryWindow
	}
	return defaultHistoryWindow
}

// failed records err on the span, counts it and wraps it as ErrStoreUnavailable.
func (s *LeaderboardService) failed(span trace.Span, op, identity string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	log.Error().Err(err).Str("op", op).Str("user", identity).Msg("leaderboard store failure")
	return unavailable(err)
}

func (s *LeaderboardService) submitFailed(span trace.Span, op, identity string, err error) error {
	scoresSubmitted.WithLabelValues(outcomeError).Inc()
	return s.failed(span, op, identity, err)
}

func toPublic(s *domain.Score) *PublicScore {
	return &PublicScore{
		ID:       s.ID,
		Identity: s.Identity,
		Value:    s.Value,
		Date:     s.DisplayDate,
		Location: s.Location,
	}
}
