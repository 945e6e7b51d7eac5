package engine

import (
	"github.com/pathwise/pathwise-backend/internal/types"
)

// Each fatigue component needs this many qualifying signals before it
// contributes; thin sessions score 0 rather than amplifying noise.
const fatigueMinSignals = 4

const fatigueSessionCapMinutes = 90.0

// AssessFatigue computes the composite fatigue score (0-100) for one
// session's ordered signal sequence. Callers sort signals by timestamp.
func AssessFatigue(signals []types.Signal, p Params) (types.FatigueComponents, float64, types.FatigueRecommendation) {
	comps := types.FatigueComponents{
		AccuracyDecline:      accuracyDecline(signals),
		ResponseTimeIncrease: responseTimeIncrease(signals),
		HintUsageIncrease:    hintUsageIncrease(signals),
		SessionDuration:      sessionDurationScore(signals),
		ErrorBurstiness:      errorBurstiness(signals),
	}
	w := p.FatigueWeights
	score := comps.AccuracyDecline*w.AccuracyDecline +
		comps.ResponseTimeIncrease*w.ResponseTimeIncrease +
		comps.HintUsageIncrease*w.HintUsageIncrease +
		comps.SessionDuration*w.SessionDuration +
		comps.ErrorBurstiness*w.ErrorBurstiness
	return comps, score, FatigueRecommendation(score)
}

// FatigueRecommendation maps a composite score to the action to suggest.
func FatigueRecommendation(score float64) types.FatigueRecommendation {
	switch {
	case score > 85:
		return types.FatigueEndSession
	case score > 70:
		return types.FatigueTakeBreak
	case score > 50:
		return types.FatigueSwitchTopic
	case score > 30:
		return types.FatigueReduceDifficulty
	default:
		return types.FatigueContinue
	}
}

func filterKind(signals []types.Signal, kind types.SignalKind) []types.Signal {
	var out []types.Signal
	for _, s := range signals {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func halves(signals []types.Signal) (first, second []types.Signal) {
	mid := len(signals) / 2
	return signals[:mid], signals[mid:]
}

func valuesOf(signals []types.Signal) []float64 {
	out := make([]float64, len(signals))
	for i, s := range signals {
		out[i] = s.Value
	}
	return out
}

func accuracyDecline(signals []types.Signal) float64 {
	acc := filterKind(signals, types.SignalAccuracy)
	if len(acc) < fatigueMinSignals {
		return 0
	}
	first, second := halves(acc)
	decline := mean(valuesOf(first)) - mean(valuesOf(second))
	if decline < 0 {
		decline = 0
	}
	return clampFloat(decline/0.5*100, 0, 100)
}

func responseTimeIncrease(signals []types.Signal) float64 {
	rt := filterKind(signals, types.SignalResponseTime)
	if len(rt) < fatigueMinSignals {
		return 0
	}
	first, second := halves(rt)
	firstAvg := mean(valuesOf(first))
	if firstAvg <= 0 {
		return 0
	}
	increase := mean(valuesOf(second))/firstAvg - 1
	if increase < 0 {
		increase = 0
	}
	return clampFloat(increase*100, 0, 100)
}

// hintUsageIncrease compares hint frequency (hints per signal) between the
// two halves of the full session stream. Single pass per half.
func hintUsageIncrease(signals []types.Signal) float64 {
	if len(signals) < fatigueMinSignals {
		return 0
	}
	first, second := halves(signals)
	freq := func(half []types.Signal) float64 {
		if len(half) == 0 {
			return 0
		}
		hints := 0
		for _, s := range half {
			if s.Kind == types.SignalHintUsage {
				hints++
			}
		}
		return float64(hints) / float64(len(half))
	}
	change := freq(second) - freq(first)
	if change < 0 {
		change = 0
	}
	return clampFloat(change/0.5*100, 0, 100)
}

func sessionDurationScore(signals []types.Signal) float64 {
	if len(signals) < fatigueMinSignals {
		return 0
	}
	elapsed := signals[len(signals)-1].Timestamp.Sub(signals[0].Timestamp).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}
	return clampFloat(elapsed/fatigueSessionCapMinutes*100, 0, 100)
}

// errorBurstiness weighs the longest consecutive-incorrect run against the
// share of accuracy signals falling inside runs of two or more errors.
func errorBurstiness(signals []types.Signal) float64 {
	acc := filterKind(signals, types.SignalAccuracy)
	if len(acc) < fatigueMinSignals {
		return 0
	}

	maxRun := 0
	inRuns := 0
	run := 0
	flush := func() {
		if run >= 2 {
			inRuns += run
		}
		if run > maxRun {
			maxRun = run
		}
		run = 0
	}
	for _, s := range acc {
		if s.Value < 0.5 {
			run++
		} else {
			flush()
		}
	}
	flush()

	runScore := clampFloat(float64(maxRun)/5*100, 0, 100)
	burstScore := clampFloat(float64(inRuns)/float64(len(acc))*200, 0, 100)
	return 0.6*runScore + 0.4*burstScore
}
