package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbourn/reaction-leaderboard/internal/anomaly"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return p
}

func TestLoadAnomalyRules_DefaultsWithoutFile(t *testing.T) {
	got, err := LoadAnomalyRules("")
	if err != nil {
		t.Fatalf("LoadAnomalyRules: %v", err)
	}
	if got != anomaly.DefaultRules() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadAnomalyRules_FileThenEnv(t *testing.T) {
	p := writeRules(t, "novice_score_floor: 120\noutlier_min_games: 6\n")
	t.Setenv("ANOMALY_OUTLIER_MIN_GAMES", "9")
	t.Setenv("ANOMALY_IMPROVEMENT_RATIO", "0.5")

	got, err := LoadAnomalyRules(p)
	if err != nil {
		t.Fatalf("LoadAnomalyRules: %v", err)
	}
	def := anomaly.DefaultRules()
	if got.NoviceScoreFloor != 120 {
		t.Fatalf("file value not applied: %+v", got)
	}
	if got.OutlierMinGames != 9 || got.ImprovementRatio != 0.5 {
		t.Fatalf("env overrides not applied: %+v", got)
	}
	if got.NoviceMaxGames != def.NoviceMaxGames || got.OutlierRatio != def.OutlierRatio {
		t.Fatalf("untouched keys should keep defaults: %+v", got)
	}
}

func TestLoadAnomalyRules_Errors(t *testing.T) {
	if _, err := LoadAnomalyRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	p := writeRules(t, "outlier_ratio: 2\n")
	if _, err := LoadAnomalyRules(p); err == nil {
		t.Fatalf("expected validation error for outlier_ratio > 1")
	}

	p = writeRules(t, "novice_max_games: [1, 2\n")
	if _, err := LoadAnomalyRules(p); err == nil || !strings.Contains(err.Error(), "anomaly rules") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
