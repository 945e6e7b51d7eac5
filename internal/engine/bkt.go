package engine

import (
	"math"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// UpdateBKT runs one Bayesian Knowledge Tracing step: posterior of knowing
// the skill given the observation, then the learning transition. Degenerate
// parameters that would zero a denominator leave pKnown unchanged; the
// learning transition still applies.
func UpdateBKT(p types.BKTParams, wasCorrect bool) types.BKTParams {
	posterior := p.PKnown
	if wasCorrect {
		denom := p.PKnown*(1-p.PSlip) + (1-p.PKnown)*p.PGuess
		if denom > 0 {
			posterior = p.PKnown * (1 - p.PSlip) / denom
		}
	} else {
		denom := p.PKnown*p.PSlip + (1-p.PKnown)*(1-p.PGuess)
		if denom > 0 {
			posterior = p.PKnown * p.PSlip / denom
		}
	}
	p.PKnown = clampFloat(posterior+(1-posterior)*p.PLearn, 0, 1)
	return p
}

// SimulateBKT previews the pKnown an update would produce without touching
// any state. Used by next-step scoring to weigh hypothetical outcomes.
func SimulateBKT(p types.BKTParams, wasCorrect bool) float64 {
	return UpdateBKT(p, wasCorrect).PKnown
}

// Confidence grows asymptotically toward 1 with observation count: 0 with no
// observations, ~0.63 at scale observations.
func Confidence(observations int, scale float64) float64 {
	if observations <= 0 || scale <= 0 {
		return 0
	}
	return 1 - math.Exp(-float64(observations)/scale)
}

// TrendSlope fits an ordinary least-squares line through the values against
// their index and returns its slope. Fewer than two points have no slope.
func TrendSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// MasteryTrend classifies the OLS slope over the last windowed pKnown values.
func MasteryTrend(history []types.MasterySnapshot, p Params) types.Trend {
	window := p.TrendWindow
	if window <= 0 {
		window = DefaultParams().TrendWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) < 2 {
		return types.TrendStable
	}
	values := make([]float64, len(history))
	for i, snap := range history {
		values[i] = snap.PKnown
	}
	slope := TrendSlope(values)
	switch {
	case slope > p.TrendSlopeEpsilon:
		return types.TrendImproving
	case slope < -p.TrendSlopeEpsilon:
		return types.TrendDeclining
	default:
		return types.TrendStable
	}
}
