package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/notify"
	"github.com/tbourn/reaction-leaderboard/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- repo-backed store -----

type repoStore struct{}

func (repoStore) InsertScore(ctx context.Context, db *gorm.DB, s *domain.Score) (string, error) {
	return repo.InsertScore(ctx, db, s)
}
func (repoStore) TopVisibleScores(ctx context.Context, db *gorm.DB, limit int) ([]domain.Score, error) {
	return repo.TopVisibleScores(ctx, db, limit)
}
func (repoStore) ScoresForIdentity(ctx context.Context, db *gorm.DB, identity string) ([]domain.Score, error) {
	return repo.ScoresForIdentity(ctx, db, identity)
}
func (repoStore) RecentScores(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error) {
	return repo.RecentScores(ctx, db, identity, limit)
}
func (repoStore) VisibleScoresForIdentity(ctx context.Context, db *gorm.DB, identity string, limit int) ([]domain.Score, error) {
	return repo.VisibleScoresForIdentity(ctx, db, identity, limit)
}
func (repoStore) VisiblePersonalBest(ctx context.Context, db *gorm.DB, identity string) (*float64, error) {
	return repo.VisiblePersonalBest(ctx, db, identity)
}
func (repoStore) GetScore(ctx context.Context, db *gorm.DB, id string) (*domain.Score, error) {
	return repo.GetScore(ctx, db, id)
}
func (repoStore) ListPendingScores(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Score, error) {
	return repo.ListPendingScores(ctx, db, offset, limit)
}
func (repoStore) CountPendingScores(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountPendingScores(ctx, db)
}
func (repoStore) UpdateReviewStatus(ctx context.Context, db *gorm.DB, id string, u repo.ReviewUpdate) error {
	return repo.UpdateReviewStatus(ctx, db, id, u)
}

// ----- failing store -----

var errBoom = errors.New("disk on fire")

// brokenStore fails every call; embedded repoStore is never reached.
type brokenStore struct {
	repoStore
	inserts int
}

func (b *brokenStore) InsertScore(context.Context, *gorm.DB, *domain.Score) (string, error) {
	b.inserts++
	return "", errBoom
}
func (*brokenStore) TopVisibleScores(context.Context, *gorm.DB, int) ([]domain.Score, error) {
	return nil, errBoom
}
func (*brokenStore) VisiblePersonalBest(context.Context, *gorm.DB, string) (*float64, error) {
	return nil, errBoom
}
func (*brokenStore) CountPendingScores(context.Context, *gorm.DB) (int64, error) {
	return 0, errBoom
}
func (*brokenStore) GetScore(context.Context, *gorm.DB, string) (*domain.Score, error) {
	return nil, errBoom
}

// ----- notifier -----

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	accept bool
}

func (n *recordingNotifier) Publish(e notify.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.accept
}

func (n *recordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

func seed(t *testing.T, db *gorm.DB, s domain.Score) string {
	t.Helper()
	id, err := repo.InsertScore(context.Background(), db, &s)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func countScores(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Score{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
