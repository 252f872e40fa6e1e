package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tbourn/reaction-leaderboard/internal/anomaly"
)

// anomalyEnvPrefix namespaces threshold overrides, e.g. ANOMALY_OUTLIER_RATIO.
const anomalyEnvPrefix = "ANOMALY_"

// LoadAnomalyRules builds detector thresholds by layering, low to high:
//  1. anomaly.DefaultRules()
//  2. the YAML file at path, when path is not empty
//  3. ANOMALY_* environment variables (ANOMALY_NOVICE_MAX_GAMES -> novice_max_games)
//
// The merged rules are validated before they are returned.
func LoadAnomalyRules(path string) (anomaly.Rules, error) {
	k := koanf.New(".")

	if strings.TrimSpace(path) != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return anomaly.Rules{}, fmt.Errorf("load anomaly rules %q: %w", path, err)
		}
	}

	envProvider := env.Provider(anomalyEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, anomalyEnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return anomaly.Rules{}, err
	}

	rules := anomaly.DefaultRules()
	if err := k.UnmarshalWithConf("", &rules, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return anomaly.Rules{}, fmt.Errorf("decode anomaly rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return anomaly.Rules{}, err
	}
	return rules, nil
}
