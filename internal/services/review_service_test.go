package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
)

func newReviews(t *testing.T) *ReviewService {
	t.Helper()
	return &ReviewService{
		DB:    newTestDB(t),
		Store: repoStore{},
		Now:   func() time.Time { return t0.Add(time.Hour) },
	}
}

func TestParseAction(t *testing.T) {
	for _, in := range []string{"approve", "deny"} {
		if _, err := ParseAction(in); err != nil {
			t.Fatalf("ParseAction(%q): %v", in, err)
		}
	}
	for _, in := range []string{"", "approved", "reject", "delete", " APPROVE ", "Deny", "approve "} {
		if _, err := ParseAction(in); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("ParseAction(%q) err=%v, want ErrInvalidAction", in, err)
		}
	}
}

func TestListPending_NewestFirstWithPagination(t *testing.T) {
	s := newReviews(t)
	ctx := context.Background()

	items, total, err := s.ListPending(ctx, 0, 0)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty queue: %+v total=%d err=%v", items, total, err)
	}

	for i := 0; i < 5; i++ {
		seed(t, s.DB, domain.Score{Identity: "p", Value: float64(50 + i), SubmittedAt: t0.Add(time.Duration(i) * time.Minute), Flagged: true, ReviewStatus: domain.ReviewPending})
	}
	seed(t, s.DB, domain.Score{Identity: "clean", Value: 300, SubmittedAt: t0.Add(time.Hour), ReviewStatus: domain.ReviewNone})

	items, total, err = s.ListPending(ctx, 1, 2)
	if err != nil || total != 5 || len(items) != 2 {
		t.Fatalf("page 1: %+v total=%d err=%v", items, total, err)
	}
	if items[0].Value != 54 || items[1].Value != 53 {
		t.Fatalf("expected newest first, got %v, %v", items[0].Value, items[1].Value)
	}
	items, _, _ = s.ListPending(ctx, 3, 2)
	if len(items) != 1 || items[0].Value != 50 {
		t.Fatalf("last page: %+v", items)
	}
}

func TestResolve_ApproveIsIdempotent(t *testing.T) {
	s := newReviews(t)
	ctx := context.Background()
	id := seed(t, s.DB, domain.Score{Identity: "ann", Value: 90, SubmittedAt: t0, Flagged: true, ReviewStatus: domain.ReviewPending})

	got, err := s.Resolve(ctx, id, "approve", "mod")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.ReviewStatus != domain.ReviewApprove || got.Flagged || got.ReviewedAt == nil || got.ReviewedBy != "mod" {
		t.Fatalf("unexpected approved score: %+v", got)
	}
	first := *got.ReviewedAt

	s.Now = func() time.Time { return t0.Add(2 * time.Hour) }
	again, err := s.Resolve(ctx, id, "approve", "other")
	if err != nil {
		t.Fatalf("re-approve must not error: %v", err)
	}
	if again.ReviewStatus != domain.ReviewApprove || !again.ReviewedAt.Equal(first) || again.ReviewedBy != "mod" {
		t.Fatalf("re-approve must be a no-op: %+v", again)
	}

	stored, _ := repoStore{}.GetScore(ctx, s.DB, id)
	if !stored.Visible() {
		t.Fatalf("approved score should be visible: %+v", stored)
	}
}

func TestResolve_DenyKeepsFlag(t *testing.T) {
	s := newReviews(t)
	ctx := context.Background()
	id := seed(t, s.DB, domain.Score{Identity: "ann", Value: 90, SubmittedAt: t0, Flagged: true, ReviewStatus: domain.ReviewPending})

	got, err := s.Resolve(ctx, id, "deny", "mod")
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if got.ReviewStatus != domain.ReviewDeny || !got.Flagged || got.ReviewedAt == nil {
		t.Fatalf("unexpected denied score: %+v", got)
	}
	stored, _ := repoStore{}.GetScore(ctx, s.DB, id)
	if stored.Visible() || !stored.Flagged || stored.Value != 90 {
		t.Fatalf("denied score should stay hidden and unchanged: %+v", stored)
	}

	items, total, _ := s.ListPending(ctx, 1, 10)
	if total != 0 || len(items) != 0 {
		t.Fatalf("denied score left the queue: %+v", items)
	}
}

func TestResolve_Errors(t *testing.T) {
	s := newReviews(t)
	ctx := context.Background()

	if _, err := s.Resolve(ctx, "missing", "approve", "mod"); !errors.Is(err, ErrScoreNotFound) {
		t.Fatalf("expected ErrScoreNotFound, got %v", err)
	}
	if _, err := s.Resolve(ctx, "missing", "nuke", "mod"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}

	id := seed(t, s.DB, domain.Score{Identity: "p", Value: 80, SubmittedAt: t0, Flagged: true, ReviewStatus: domain.ReviewPending})
	if _, err := s.Resolve(ctx, id, " APPROVE ", "mod"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("mixed-case action accepted: %v", err)
	}
	stored, _ := repoStore{}.GetScore(ctx, s.DB, id)
	if stored.ReviewStatus != domain.ReviewPending {
		t.Fatalf("rejected action changed the score: %+v", stored)
	}

	s.Store = &brokenStore{}
	if _, err := s.Resolve(ctx, "x", "deny", "mod"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, _, err := s.ListPending(ctx, 1, 10); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestScoresFor_IncludesAllStates(t *testing.T) {
	s := newReviews(t)
	seed(t, s.DB, domain.Score{Identity: "ann", Value: 300, SubmittedAt: t0, ReviewStatus: domain.ReviewNone})
	seed(t, s.DB, domain.Score{Identity: "ann", Value: 90, SubmittedAt: t0.Add(time.Minute), Flagged: true, ReviewStatus: domain.ReviewDeny})

	items, err := s.ScoresFor(context.Background(), "ann")
	if err != nil || len(items) != 2 || items[0].ReviewStatus != domain.ReviewDeny {
		t.Fatalf("unexpected: %+v err=%v", items, err)
	}
}
