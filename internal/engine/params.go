package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FatigueWeights blend the five fatigue component scores into the composite.
type FatigueWeights struct {
	AccuracyDecline      float64 `yaml:"accuracy_decline"`
	ResponseTimeIncrease float64 `yaml:"response_time_increase"`
	HintUsageIncrease    float64 `yaml:"hint_usage_increase"`
	SessionDuration      float64 `yaml:"session_duration"`
	ErrorBurstiness      float64 `yaml:"error_burstiness"`
}

// NextStepWeights blend the five next-step factors into the composite score.
type NextStepWeights struct {
	MasteryGain           float64 `yaml:"mastery_gain"`
	EngagementProbability float64 `yaml:"engagement_probability"`
	TimeEfficiency        float64 `yaml:"time_efficiency"`
	PrerequisiteCoverage  float64 `yaml:"prerequisite_coverage"`
	CuriosityAlignment    float64 `yaml:"curiosity_alignment"`
}

// Params are the engine tunables. Defaults implement the documented model;
// deployments may override them from a YAML file.
type Params struct {
	EMAAlpha float64 `yaml:"ema_alpha"`

	DifficultyMin      float64 `yaml:"difficulty_min"`
	DifficultyMax      float64 `yaml:"difficulty_max"`
	DifficultyStep     float64 `yaml:"difficulty_step"`
	AccuracyRaiseAbove float64 `yaml:"accuracy_raise_above"`
	AccuracyLowerBelow float64 `yaml:"accuracy_lower_below"`

	DefaultPLearn float64 `yaml:"default_p_learn"`
	DefaultPGuess float64 `yaml:"default_p_guess"`
	DefaultPSlip  float64 `yaml:"default_p_slip"`
	DefaultPKnown float64 `yaml:"default_p_known"`

	MasteryHistoryCap int     `yaml:"mastery_history_cap"`
	TrendWindow       int     `yaml:"trend_window"`
	TrendSlopeEpsilon float64 `yaml:"trend_slope_epsilon"`
	ConfidenceScale   float64 `yaml:"confidence_scale"`

	MasteredThreshold    float64 `yaml:"mastered_threshold"`
	BeyondReachThreshold float64 `yaml:"beyond_reach_threshold"`

	FatigueWeights  FatigueWeights  `yaml:"fatigue_weights"`
	NextStepWeights NextStepWeights `yaml:"next_step_weights"`
}

func DefaultParams() Params {
	return Params{
		EMAAlpha: 0.3,

		DifficultyMin:      0.1,
		DifficultyMax:      1.0,
		DifficultyStep:     0.05,
		AccuracyRaiseAbove: 0.85,
		AccuracyLowerBelow: 0.75,

		DefaultPLearn: 0.1,
		DefaultPGuess: 0.2,
		DefaultPSlip:  0.1,
		DefaultPKnown: 0.5,

		MasteryHistoryCap: 500,
		TrendWindow:       10,
		TrendSlopeEpsilon: 0.01,
		ConfidenceScale:   10,

		MasteredThreshold:    0.8,
		BeyondReachThreshold: 0.3,

		FatigueWeights: FatigueWeights{
			AccuracyDecline:      0.30,
			ResponseTimeIncrease: 0.25,
			HintUsageIncrease:    0.20,
			SessionDuration:      0.15,
			ErrorBurstiness:      0.10,
		},
		NextStepWeights: NextStepWeights{
			MasteryGain:           0.30,
			EngagementProbability: 0.25,
			TimeEfficiency:        0.20,
			PrerequisiteCoverage:  0.15,
			CuriosityAlignment:    0.10,
		},
	}
}

// LoadParams reads overrides from a YAML file on top of the defaults. An
// empty path returns the defaults unchanged.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse params file: %w", err)
	}
	return p, nil
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
