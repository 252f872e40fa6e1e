// Package handlers exposes the leaderboard over HTTP.
//
// Handlers are transport-thin: they read the caller's identity (set by the
// auth middleware), validate input, call the services and translate results
// and typed errors into responses.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/http/middleware"
	"github.com/tbourn/reaction-leaderboard/internal/notify"
	"github.com/tbourn/reaction-leaderboard/internal/services"
	"github.com/tbourn/reaction-leaderboard/internal/utils"
)

//
// Service contracts (context-aware)
//

// LeaderboardService is the score pipeline consumed by the public endpoints.
type LeaderboardService interface {
	Submit(ctx context.Context, identity string, value float64, now time.Time) (*services.PublicScore, error)
	TopScores(ctx context.Context, n int) ([]services.RankedScore, error)
	PersonalBest(ctx context.Context, identity string) (*float64, error)
	History(ctx context.Context, identity string, limit int) ([]services.PublicScore, error)
	Replay(ctx context.Context, identity, key string, now time.Time) (*services.PublicScore, bool)
	Remember(ctx context.Context, identity, key, scoreID string)
}

// ReviewService is the moderation workflow consumed by the admin endpoints.
type ReviewService interface {
	ListPending(ctx context.Context, page, pageSize int) ([]domain.Score, int64, error)
	Resolve(ctx context.Context, id, action, reviewer string) (*domain.Score, error)
	ScoresFor(ctx context.Context, identity string) ([]domain.Score, error)
}

// EventSource hands out score event subscriptions.
type EventSource interface {
	Subscribe(identity string) (<-chan notify.Event, func())
}

// StatsFunc returns the visible score count and the latest modification
// time, used to build the leaderboard ETag.
type StatsFunc func(ctx context.Context) (count int64, maxUpdatedAt *time.Time, err error)

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	board   LeaderboardService
	reviews ReviewService
	events  EventSource
	stats   StatsFunc

	now       func() time.Time
	heartbeat time.Duration
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithEvents enables GET /events.
func WithEvents(src EventSource) Option { return func(h *Handlers) { h.events = src } }

// WithStats enables the leaderboard ETag.
func WithStats(fn StatsFunc) Option { return func(h *Handlers) { h.stats = fn } }

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option { return func(h *Handlers) { h.now = now } }

// WithHeartbeat sets the event stream keep-alive interval.
func WithHeartbeat(d time.Duration) Option { return func(h *Handlers) { h.heartbeat = d } }

// New constructs Handlers bound to the given services.
func New(board LeaderboardService, reviews ReviewService, opts ...Option) *Handlers {
	h := &Handlers{
		board:     board,
		reviews:   reviews,
		now:       time.Now,
		heartbeat: 25 * time.Second,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// identity is the authenticated caller; routes that call it sit behind
// middleware.RequireUser.
func identity(c *gin.Context) string { return middleware.Identity(c) }

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
