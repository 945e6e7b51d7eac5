package engine

import (
	"testing"
	"time"

	"github.com/pathwise/pathwise-backend/internal/types"
)

func sessionSignals(start time.Time, step time.Duration, kinds []types.SignalKind, values []float64) []types.Signal {
	out := make([]types.Signal, len(kinds))
	for i := range kinds {
		out[i] = types.Signal{
			Kind:      kinds[i],
			Value:     values[i],
			Timestamp: start.Add(time.Duration(i) * step),
		}
	}
	return out
}

func TestAssessFatigue_EmptySessionScoresZero(t *testing.T) {
	comps, score, rec := AssessFatigue(nil, DefaultParams())
	if score != 0 {
		t.Fatalf("expected score 0, got %v", score)
	}
	if rec != types.FatigueContinue {
		t.Fatalf("expected continue, got %v", rec)
	}
	if comps != (types.FatigueComponents{}) {
		t.Fatalf("expected all-zero components, got %+v", comps)
	}
}

func TestAccuracyDecline_FullCollapseClampsAt100(t *testing.T) {
	start := time.Now().UTC()
	signals := sessionSignals(start, time.Minute,
		[]types.SignalKind{types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy},
		[]float64{1, 1, 1, 0, 0, 0},
	)
	if got := accuracyDecline(signals); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestAccuracyDecline_ImprovementScoresZero(t *testing.T) {
	start := time.Now().UTC()
	signals := sessionSignals(start, time.Minute,
		[]types.SignalKind{types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy},
		[]float64{0, 0, 1, 1},
	)
	if got := accuracyDecline(signals); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestAccuracyDecline_BelowMinimumSignalsScoresZero(t *testing.T) {
	start := time.Now().UTC()
	signals := sessionSignals(start, time.Minute,
		[]types.SignalKind{types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy},
		[]float64{1, 0, 0},
	)
	if got := accuracyDecline(signals); got != 0 {
		t.Fatalf("expected 0 below minimum signals, got %v", got)
	}
}

func TestResponseTimeIncrease_DoublingScores100(t *testing.T) {
	start := time.Now().UTC()
	signals := sessionSignals(start, time.Minute,
		[]types.SignalKind{types.SignalResponseTime, types.SignalResponseTime, types.SignalResponseTime, types.SignalResponseTime},
		[]float64{1000, 1000, 2000, 2000},
	)
	if got := responseTimeIncrease(signals); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestHintUsageIncrease_SecondHalfHints(t *testing.T) {
	start := time.Now().UTC()
	// First half has no hints; second half is half hints.
	signals := sessionSignals(start, time.Minute,
		[]types.SignalKind{
			types.SignalAccuracy, types.SignalAccuracy,
			types.SignalHintUsage, types.SignalAccuracy,
		},
		[]float64{1, 1, 1, 0},
	)
	// Frequency change 0.5-0 scaled by /0.5*100.
	if got := hintUsageIncrease(signals); !almostEqual(got, 100, 1e-9) {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestSessionDurationScore_LinearTo90Minutes(t *testing.T) {
	start := time.Now().UTC()
	signals := sessionSignals(start, 15*time.Minute,
		[]types.SignalKind{types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy},
		[]float64{1, 1, 1, 1},
	)
	// 45 minutes elapsed over a 90 minute scale.
	if got := sessionDurationScore(signals); !almostEqual(got, 50, 1e-9) {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestErrorBurstiness_WeighsRunsAndShare(t *testing.T) {
	start := time.Now().UTC()
	signals := sessionSignals(start, time.Minute,
		[]types.SignalKind{types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy, types.SignalAccuracy},
		[]float64{1, 1, 1, 0, 0, 0},
	)
	// maxRun=3 -> 60; 3 of 6 signals in runs of 2+ -> 100 (clamped).
	if got := errorBurstiness(signals); !almostEqual(got, 0.6*60+0.4*100, 1e-9) {
		t.Fatalf("expected 76, got %v", got)
	}
}

func TestAssessFatigue_DecliningSessionRecommendsIntervention(t *testing.T) {
	start := time.Now().UTC()
	kinds := make([]types.SignalKind, 0, 16)
	values := make([]float64, 0, 16)
	// Early: correct, fast. Late: wrong, slow, hint-heavy.
	for i := 0; i < 4; i++ {
		kinds = append(kinds, types.SignalAccuracy, types.SignalResponseTime)
		values = append(values, 1, 1000)
	}
	for i := 0; i < 4; i++ {
		kinds = append(kinds, types.SignalAccuracy, types.SignalResponseTime, types.SignalHintUsage)
		values = append(values, 0, 4000, 1)
	}
	signals := sessionSignals(start, 5*time.Minute, kinds, values)

	_, score, rec := AssessFatigue(signals, DefaultParams())
	if score <= 50 {
		t.Fatalf("expected a high fatigue score, got %v", score)
	}
	if rec == types.FatigueContinue {
		t.Fatalf("expected an intervention recommendation, got %v", rec)
	}
}

func TestFatigueRecommendation_Thresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  types.FatigueRecommendation
	}{
		{0, types.FatigueContinue},
		{30, types.FatigueContinue},
		{31, types.FatigueReduceDifficulty},
		{51, types.FatigueSwitchTopic},
		{71, types.FatigueTakeBreak},
		{86, types.FatigueEndSession},
	}
	for _, tc := range cases {
		if got := FatigueRecommendation(tc.score); got != tc.want {
			t.Fatalf("score %v: expected %v, got %v", tc.score, tc.want, got)
		}
	}
}
