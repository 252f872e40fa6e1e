// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/reaction-leaderboard/docs"
	"github.com/tbourn/reaction-leaderboard/internal/anomaly"
	"github.com/tbourn/reaction-leaderboard/internal/config"
	"github.com/tbourn/reaction-leaderboard/internal/cooldown"
	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/http/handlers"
	"github.com/tbourn/reaction-leaderboard/internal/http/middleware"
	"github.com/tbourn/reaction-leaderboard/internal/notify"
	"github.com/tbourn/reaction-leaderboard/internal/repo"
	"github.com/tbourn/reaction-leaderboard/internal/services"
)

// scoreStoreShim adapts the repository free functions to the
// services.ScoreStore interface expected by the leaderboard and review
// services.
type scoreStoreShim struct{}

// InsertScore proxies repo.InsertScore.
func (scoreStoreShim) InsertScore(ctx context.Context, db *gorm.DB, s *domain.Score) (string, error) {
	return repo.InsertScore(ctx, db, s)
}

// TopVisibleScores proxies repo.TopVisibleScores.
func (scoreStoreShim) TopVisibleScores(ctx context.Context, db *gorm.DB, limit int) ([]domain.Score, error) {
	return repo.TopVisibleScores(ctx, db, limit)
}

// ScoresForIdentity proxies repo.ScoresForIdentity.
func (scoreStoreShim) ScoresForIdentity(ctx context.Context, db *gorm.DB, identity string) ([]domain.Score, error) {
	return repo.ScoresForIdentity(ctx, db, identity)
}

// RecentScores proxies repo.RecentScores.
func (scoreStoreShim) RecentScores(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error) {
	return repo.RecentScores(ctx, db, identity, limit)
}

// VisibleScoresForIdentity proxies repo.VisibleScoresForIdentity.
func (scoreStoreShim) VisibleScoresForIdentity(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error) {
	return repo.VisibleScoresForIdentity(ctx, db, identity, limit)
}

// VisiblePersonalBest proxies repo.VisiblePersonalBest.
func (scoreStoreShim) VisiblePersonalBest(ctx context.Context, db *gorm.DB, identity string) (*float64, error) {
	return repo.VisiblePersonalBest(ctx, db, identity)
}

// GetScore proxies repo.GetScore.
func (scoreStoreShim) GetScore(ctx context.Context, db *gorm.DB, id string) (*domain.Score, error) {
	return repo.GetScore(ctx, db, id)
}

// ListPendingScores proxies repo.ListPendingScores (pagination support).
func (scoreStoreShim) ListPendingScores(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Score, error) {
	return repo.ListPendingScores(ctx, db, offset, limit)
}

// CountPendingScores proxies repo.CountPendingScores (pagination support).
func (scoreStoreShim) CountPendingScores(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountPendingScores(ctx, db)
}

// UpdateReviewStatus proxies repo.UpdateReviewStatus.
func (scoreStoreShim) UpdateReviewStatus(ctx context.Context, db *gorm.DB, id string, u repo.ReviewUpdate) error {
	return repo.UpdateReviewStatus(ctx, db, id, u)
}

// Deps are the process-wide collaborators built in main. Zero values fall
// back to an in-memory cooldown, the default detector rules and no event
// stream.
type Deps struct {
	Cooldown cooldown.Limiter
	Detector services.Evaluator
	Events   *notify.Broadcaster
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, health and metrics endpoints, and then mounts the public API
// under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//
// and on the API group:
//  8. Authenticate (cookie, bearer token, X-User-ID in demo mode)
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. RequireUser
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB; a score body is a few bytes)
	r.Use(limitBody(64 << 10))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cooldown/detector
	limiter := deps.Cooldown
	if limiter == nil {
		limiter = cooldown.NewMemory(cfg.SubmitCooldown)
	}
	detector := deps.Detector
	if detector == nil {
		detector = anomaly.New(anomaly.DefaultRules())
	}

	users := services.NewUserService(db)
	board := &services.LeaderboardService{
		DB:             db,
		Store:          scoreStoreShim{},
		Users:          users,
		Limiter:        limiter,
		Detector:       detector,
		HistoryWindow:  cfg.HistoryWindow,
		DefaultLimit:   cfg.DefaultLimit,
		MaxLimit:       cfg.MaxLimit,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	opts := []handlers.Option{
		handlers.WithStats(func(ctx context.Context) (int64, *time.Time, error) {
			return repo.ScoresStats(ctx, db)
		}),
	}
	if deps.Events != nil {
		board.Notifier = deps.Events
		opts = append(opts, handlers.WithEvents(deps.Events))
	}
	reviews := &services.ReviewService{DB: db, Store: scoreStoreShim{}}
	h := handlers.New(board, reviews, opts...)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIdentityOrIP())

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(
		middleware.Authenticate(middleware.AuthOptions{
			CookieName:          cfg.Auth.CookieName,
			AllowHeaderIdentity: cfg.Auth.AllowHeaderIdentity,
			ByToken: func(ctx context.Context, token string) (middleware.Principal, error) {
				return principal(users.FindByToken(ctx, token))
			},
			ByIdentity: func(ctx context.Context, identity string) (middleware.Principal, error) {
				return principal(users.FindByIdentity(ctx, identity))
			},
		}),
		middleware.IdempotencyValidator(
			middleware.IdempotencyOptions{MaxLen: 200},
			func(ctx context.Context, identity, key string, now time.Time) (bool, error) {
				rec, err := repo.GetIdempotency(ctx, db, identity, key, now)
				if err != nil || rec == nil {
					return false, nil
				}
				return true, nil
			},
		),
		rl.Handler(),
		middleware.RequireUser(),
	)
	{
		// Scores
		api.POST("/score", h.SubmitScore)

		// Stream (never compressed; gzip buffers break event delivery)
		api.GET("/events", h.Events)

		reads := api.Group("", gzip.Gzip(gzip.DefaultCompression))
		reads.GET("/scores", h.ListScores)
		reads.GET("/personal-best/:name", h.PersonalBest)
		reads.GET("/me/scores", h.MyScores)

		// Moderation
		admin := reads.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
		admin.GET("/flagged-scores", h.ListFlagged)
		admin.POST("/review-score/:id", h.ReviewScore)
		admin.GET("/scores/:name", h.PlayerScores)
	}
}

// principal maps a directory lookup onto the auth middleware contract.
func principal(u *domain.User, err error) (middleware.Principal, error) {
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return middleware.Principal{}, middleware.ErrUnknownToken
		}
		return middleware.Principal{}, err
	}
	return middleware.Principal{Identity: u.Identity, Role: u.Role}, nil
}

// corsMiddleware returns the CORS posture: allow all origins without
// credentials when no allowlist is configured, otherwise echo allowed origins
// with credentials so the session cookie travels.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match",
	}
	expose := []string{"X-Request-ID", "Retry-After", "ETag", "Content-Length"}
	methods := []string{"GET", "POST", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    expose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    expose,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
