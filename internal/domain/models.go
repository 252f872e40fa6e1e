// Package domain defines the persistence models for scores and players.
// These types are mapped with GORM and shared across the repository and
// service layers.
package domain

import (
	"time"
)

// ReviewStatus is the moderation state of a score.
type ReviewStatus string

// Review states. Pending is set together with Flagged; Approve and Deny are
// set only by a moderator.
const (
	ReviewNone    ReviewStatus = "none"
	ReviewPending ReviewStatus = "pending"
	ReviewApprove ReviewStatus = "approve"
	ReviewDeny    ReviewStatus = "deny"
)

// DisplayDateLayout formats Score.DisplayDate.
const DisplayDateLayout = "2006-01-02"

// Score is one accepted reaction-time submission.
//
// Fields:
//   - ID: UUIDv7 primary key; time ordered, so ID DESC follows insertion order.
//   - Identity: owner of the score (indexed with SubmittedAt for history reads).
//   - Value: reaction time in milliseconds, always > 0.
//   - SubmittedAt: acceptance time (UTC); authoritative recency key.
//   - DisplayDate: calendar date of SubmittedAt for UI display.
//   - Location: coarse location copied from the player's profile.
//   - Flagged / FlagReason: anomaly detection outcome; never exposed publicly.
//   - ReviewStatus / ReviewedAt / ReviewedBy: moderation state.
//
// A score is publicly visible unless it is flagged and not yet approved;
// see Visible.
type Score struct {
	ID           string       `json:"id"            gorm:"type:char(36);primaryKey"`
	Identity     string       `json:"name"          gorm:"type:varchar(255);not null;index:idx_scores_identity_time,priority:1"`
	Value        float64      `json:"score"         gorm:"not null;index:idx_scores_value;check:value > 0"`
	SubmittedAt  time.Time    `json:"submitted_at"  gorm:"not null;index:idx_scores_identity_time,priority:2"`
	DisplayDate  string       `json:"date"          gorm:"type:varchar(10);not null"`
	Location     string       `json:"location"      gorm:"type:varchar(255);not null;default:''"`
	Flagged      bool         `json:"flagged"       gorm:"not null;default:false"`
	FlagReason   *string      `json:"flag_reason,omitempty"`
	ReviewStatus ReviewStatus `json:"review_status" gorm:"type:varchar(16);not null;default:'none';index:idx_scores_review;check:review_status IN ('none','pending','approve','deny')"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy   string       `json:"reviewed_by,omitempty" gorm:"type:varchar(255);not null;default:''"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName returns the database table name for Score.
func (Score) TableName() string { return "scores" }

// Visible reports whether the score counts toward public rankings.
func (s Score) Visible() bool {
	if s.ReviewStatus != ReviewNone && s.ReviewStatus != ReviewApprove {
		return false
	}
	return !s.Flagged || s.ReviewStatus == ReviewApprove
}

// Role of a player account.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// User is the profile a score submission reads from. Accounts and sessions
// are issued elsewhere; this table only mirrors what the leaderboard needs.
//
// Fields:
//   - Identity: unique player name (primary key).
//   - Token: current session token, unique when present.
//   - Role: "player" or "admin".
//   - Location: coarse geographic label resolved at account creation/login.
type User struct {
	Identity  string    `json:"name"     gorm:"type:varchar(255);primaryKey"`
	Token     *string   `json:"-"        gorm:"type:varchar(255);uniqueIndex"`
	Role      string    `json:"role"     gorm:"type:varchar(16);not null;default:'player'"`
	Location  string    `json:"location" gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user may moderate scores.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
