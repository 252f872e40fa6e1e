// Command server runs the reaction-time leaderboard API.
//
// @title        Reaction Leaderboard API
// @version      1.0
// @description  Reaction-time leaderboard with cooldowns, anomaly flagging and moderation.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/reaction-leaderboard/internal/anomaly"
	"github.com/tbourn/reaction-leaderboard/internal/config"
	"github.com/tbourn/reaction-leaderboard/internal/cooldown"
	httpapi "github.com/tbourn/reaction-leaderboard/internal/http"
	"github.com/tbourn/reaction-leaderboard/internal/notify"
	"github.com/tbourn/reaction-leaderboard/internal/observability"
	"github.com/tbourn/reaction-leaderboard/internal/repo"
	"github.com/tbourn/reaction-leaderboard/internal/services"
	"github.com/tbourn/reaction-leaderboard/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, observability.Build{
		Version:     sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version),
		Environment: cfg.GinMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if cfg.OTEL.Enabled {
		if err := repo.UseTracing(db); err != nil {
			log.Fatal().Err(err).Msg("gorm tracing plugin")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	if err := services.NewUserService(db).EnsureAdmins(ctx, cfg.Auth.AdminIdentities); err != nil {
		log.Fatal().Err(err).Msg("seed admins")
	}

	rules, err := config.LoadAnomalyRules(cfg.AnomalyRules)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AnomalyRules).Msg("anomaly rules")
	}

	limiter, closeLimiter := newCooldown(ctx, cfg)
	defer closeLimiter()

	events := notify.NewBroadcaster(cfg.EventBuffer)
	events.Start(ctx)
	defer events.Stop()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, httpapi.Deps{
		Cooldown: limiter,
		Detector: anomaly.New(rules),
		Events:   events,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		// no WriteTimeout: it would cut event streams
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Close event streams first so Shutdown does not wait on them.
	events.Stop()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	log.Info().Msg("stopped")
}

// newCooldown builds the submission cooldown selected by COOLDOWN_BACKEND.
// The returned func releases backend connections.
func newCooldown(ctx context.Context, cfg config.Config) (cooldown.Limiter, func()) {
	if cfg.CooldownBackend != "redis" {
		return cooldown.NewMemory(cfg.SubmitCooldown), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("cooldown backed by redis")
	return cooldown.NewRedis(client, cfg.SubmitCooldown, "leaderboard:cooldown:"), func() { _ = client.Close() }
}
