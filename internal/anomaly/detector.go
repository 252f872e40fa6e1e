// Package anomaly decides whether a freshly submitted reaction time looks
// implausible for the player who submitted it.
//
// The detector is a pure function of its inputs: the candidate value, the
// player's current personal best and the player's recent history (newest
// first). It performs no I/O and never fails; when there is not enough history
// for a heuristic, that heuristic is simply skipped.
//
// Heuristics run in a fixed order and a later match overwrites the reason of
// an earlier one:
//
//  1. improvement  – candidate beats a sub-second personal best by a wide margin
//  2. novice       – very fast score from a player with few games
//  3. outlier      – candidate far below the player's recent average
package anomaly

import (
	"errors"
	"fmt"
)

// Heuristic names, also used as metric label values.
const (
	HeuristicImprovement = "improvement"
	HeuristicNovice      = "novice"
	HeuristicOutlier     = "outlier"
)

// Rules holds the tunable thresholds of every heuristic. The koanf tags match
// the keys accepted by config.LoadAnomalyRules.
type Rules struct {
	// ImprovementRatio: flag when candidate < personalBest * ImprovementRatio.
	ImprovementRatio float64 `koanf:"improvement_ratio"`
	// ImprovementMaxBest: only personal bests strictly below this are considered.
	ImprovementMaxBest float64 `koanf:"improvement_max_best"`
	// ImprovementMinGames: history entries required before the check applies.
	ImprovementMinGames int `koanf:"improvement_min_games"`

	// NoviceMaxGames: players with fewer history entries than this are novices.
	NoviceMaxGames int `koanf:"novice_max_games"`
	// NoviceScoreFloor: novices scoring strictly below this are flagged.
	NoviceScoreFloor float64 `koanf:"novice_score_floor"`

	// OutlierMinGames: history entries required before averaging.
	OutlierMinGames int `koanf:"outlier_min_games"`
	// OutlierRatio: flag when candidate < mean(history) * OutlierRatio.
	OutlierRatio float64 `koanf:"outlier_ratio"`
}

// DefaultRules returns the production thresholds.
func DefaultRules() Rules {
	return Rules{
		ImprovementRatio:    0.6,
		ImprovementMaxBest:  1000,
		ImprovementMinGames: 2,
		NoviceMaxGames:      5,
		NoviceScoreFloor:    150,
		OutlierMinGames:     8,
		OutlierRatio:        0.33,
	}
}

// Validate reports the first threshold that is out of range.
func (r Rules) Validate() error {
	switch {
	case r.ImprovementRatio <= 0 || r.ImprovementRatio >= 1:
		return errors.New("improvement_ratio must be in (0,1)")
	case r.ImprovementMaxBest <= 0:
		return errors.New("improvement_max_best must be > 0")
	case r.ImprovementMinGames < 0:
		return errors.New("improvement_min_games must be >= 0")
	case r.NoviceMaxGames < 0:
		return errors.New("novice_max_games must be >= 0")
	case r.NoviceScoreFloor < 0:
		return errors.New("novice_score_floor must be >= 0")
	case r.OutlierMinGames < 1:
		return errors.New("outlier_min_games must be >= 1")
	case r.OutlierRatio <= 0 || r.OutlierRatio >= 1:
		return errors.New("outlier_ratio must be in (0,1)")
	}
	return nil
}

// Decision is the outcome of an evaluation. Reason and Heuristic are empty
// unless Flagged is true.
type Decision struct {
	Flagged   bool
	Reason    string
	Heuristic string
}

// Detector evaluates candidates against Rules. The zero value is not useful;
// build it with New or set Rules explicitly.
type Detector struct {
	Rules Rules
}

// New returns a Detector using rules.
func New(rules Rules) Detector { return Detector{Rules: rules} }

// Evaluate runs every heuristic in order. personalBest is nil when the player
// has no visible score yet; recent holds the player's most recent values,
// newest first, regardless of their review state.
func (d Detector) Evaluate(identity string, candidate float64, personalBest *float64, recent []float64) Decision {
	var out Decision
	games := len(recent)
	r := d.Rules

	if personalBest != nil && *personalBest < r.ImprovementMaxBest && games >= r.ImprovementMinGames &&
		candidate < *personalBest*r.ImprovementRatio {
		pb := *personalBest
		out = Decision{
			Flagged:   true,
			Heuristic: HeuristicImprovement,
			Reason: fmt.Sprintf("improved by more than %.0f%% over personal best of %gms (%gms, %.0f%% faster)",
				(1-r.ImprovementRatio)*100, pb, candidate, (pb-candidate)/pb*100),
		}
	}

	if games < r.NoviceMaxGames && candidate < r.NoviceScoreFloor {
		out = Decision{
			Flagged:   true,
			Heuristic: HeuristicNovice,
			Reason:    fmt.Sprintf("expert score of %gms after only %d games", candidate, games),
		}
	}

	if games >= r.OutlierMinGames {
		avg := mean(recent)
		if candidate < avg*r.OutlierRatio {
			out = Decision{
				Flagged:   true,
				Heuristic: HeuristicOutlier,
				Reason:    fmt.Sprintf("score of %gms is far below recent average of %.1fms", candidate, avg),
			}
		}
	}

	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
