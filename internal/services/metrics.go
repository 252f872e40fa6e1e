package services

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes for scoresSubmitted.
const (
	outcomeAccepted    = "accepted"
	outcomeFlagged     = "flagged"
	outcomeInvalid     = "invalid"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
	outcomeReplayed    = "replayed"
)

var (
	scoresSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_scores_submitted_total",
			Help: "Score submissions by outcome.",
		},
		[]string{"outcome"},
	)
	scoresFlagged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_scores_flagged_total",
			Help: "Flagged scores by the heuristic that decided the reason.",
		},
		[]string{"heuristic"},
	)
	reviewsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_reviews_resolved_total",
			Help: "Moderation decisions by action.",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(scoresSubmitted, scoresFlagged, reviewsResolved)
}
