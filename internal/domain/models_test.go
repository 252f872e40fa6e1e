package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Score{}).TableName() != "scores" {
		t.Fatalf("Score.TableName() = %q; want %q", (Score{}).TableName(), "scores")
	}
	if (User{}).TableName() != "users" {
		t.Fatalf("User.TableName() = %q; want %q", (User{}).TableName(), "users")
	}
}

func TestScore_Visible(t *testing.T) {
	cases := []struct {
		name    string
		flagged bool
		status  ReviewStatus
		want    bool
	}{
		{"clean", false, ReviewNone, true},
		{"flagged pending", true, ReviewPending, false},
		{"flagged approved", true, ReviewApprove, true},
		{"flagged denied", true, ReviewDeny, false},
		{"flagged without review", true, ReviewNone, false},
		{"unflagged denied", false, ReviewDeny, false},
	}
	for _, tc := range cases {
		s := Score{Flagged: tc.flagged, ReviewStatus: tc.status}
		if got := s.Visible(); got != tc.want {
			t.Errorf("%s: Visible()=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUser_IsAdmin(t *testing.T) {
	if (User{Role: RolePlayer}).IsAdmin() {
		t.Fatalf("player must not be admin")
	}
	if !(User{Role: RoleAdmin}).IsAdmin() {
		t.Fatalf("admin role must be admin")
	}
}

func TestMigrations_IndexesAndDefaults(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Score{}, &User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&Score{}, &User{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Score{}, "idx_scores_identity_time") {
		t.Fatalf("expected index idx_scores_identity_time on scores")
	}
	if !m.HasIndex(&Score{}, "idx_scores_value") {
		t.Fatalf("expected index idx_scores_value on scores")
	}
	if !m.HasIndex(&Score{}, "idx_scores_review") {
		t.Fatalf("expected index idx_scores_review on scores")
	}

	now := time.Now().UTC()
	if err := db.Exec(`INSERT INTO scores (id, identity, value, submitted_at, display_date, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`, "s1", "ann", 250.0, now, now.Format(DisplayDateLayout), now, now).Error; err != nil {
		t.Fatalf("insert score: %v", err)
	}

	var got Score
	if err := db.First(&got, "id = ?", "s1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.ReviewStatus != ReviewNone || got.Flagged || got.FlagReason != nil {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if !got.Visible() {
		t.Fatalf("fresh score should be visible")
	}

	tok := "t1"
	if err := db.Create(&User{Identity: "ann", Token: &tok}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	dup := &User{Identity: "bob", Token: &tok}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation on users.token")
	}
	var u User
	if err := db.First(&u, "identity = ?", "ann").Error; err != nil {
		t.Fatalf("read user: %v", err)
	}
	if u.Role != RolePlayer {
		t.Fatalf("default role = %q; want %q", u.Role, RolePlayer)
	}
}
