package engine

import (
	"math"
	"sort"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// Reserved for a curiosity model that is not part of this engine; the factor
// keeps its weight so scores stay comparable once it lands.
const curiosityAlignmentPlaceholder = 0.5

// ScoreNextSteps ranks candidate learning steps for the profile. Pure and
// deterministic: identical inputs produce identical scores and ordering,
// with ties keeping input order.
func ScoreNextSteps(profile *types.AdaptationProfile, candidates []types.CandidateStep, params Params) []types.ScoredStep {
	out := make([]types.ScoredStep, 0, len(candidates))
	for _, cand := range candidates {
		factors := scoreFactors(profile, cand, params)
		w := params.NextStepWeights
		score := factors.MasteryGain*w.MasteryGain +
			factors.EngagementProbability*w.EngagementProbability +
			factors.TimeEfficiency*w.TimeEfficiency +
			factors.PrerequisiteCoverage*w.PrerequisiteCoverage +
			factors.CuriosityAlignment*w.CuriosityAlignment
		out = append(out, types.ScoredStep{Step: cand, Score: score, Factors: factors})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func scoreFactors(profile *types.AdaptationProfile, cand types.CandidateStep, params Params) types.ScoreFactors {
	bkt := defaultBKTParams(params)
	if cs := profile.CompetencyStateFor(cand.CompetencyID); cs != nil {
		bkt = cs.Params()
	}

	// Blend the two hypothetical outcomes by how likely this learner is to
	// answer correctly right now.
	correct := SimulateBKT(bkt, true)
	incorrect := SimulateBKT(bkt, false)
	expected := profile.EMAAccuracy*correct + (1-profile.EMAAccuracy)*incorrect
	gain := expected - bkt.PKnown
	if gain < 0 {
		gain = 0
	}

	fit := clampFloat(1-math.Abs(cand.Difficulty-profile.CurrentDifficulty), 0, 1)
	engagement := 0.5*fit + 0.5*profile.EMAEngagement

	timeEfficiency := 0.0
	if cand.EstimatedDurationMinutes > 0 {
		timeEfficiency = math.Min(1, (gain/cand.EstimatedDurationMinutes)/0.1)
	}

	coverage := 1.0
	if len(cand.Prerequisites) > 0 {
		met := 0
		for _, prereq := range cand.Prerequisites {
			pKnown := params.DefaultPKnown
			if cs := profile.CompetencyStateFor(prereq); cs != nil {
				pKnown = cs.PKnown
			}
			if pKnown > params.MasteredThreshold {
				met++
			}
		}
		coverage = float64(met) / float64(len(cand.Prerequisites))
	}

	return types.ScoreFactors{
		MasteryGain:           gain,
		EngagementProbability: engagement,
		TimeEfficiency:        timeEfficiency,
		PrerequisiteCoverage:  coverage,
		CuriosityAlignment:    curiosityAlignmentPlaceholder,
	}
}

func defaultBKTParams(params Params) types.BKTParams {
	return types.BKTParams{
		PLearn: params.DefaultPLearn,
		PGuess: params.DefaultPGuess,
		PSlip:  params.DefaultPSlip,
		PKnown: params.DefaultPKnown,
	}
}
