package engine

import (
	"github.com/pathwise/pathwise-backend/internal/types"
)

// CalculateZPD classifies a domain's competencies around the learner's zone
// of proximal development and derives the difficulty band to target. The
// second return is false when no competency in the domain has recorded state.
func CalculateZPD(states []*types.CompetencyState, domain string, p Params) (types.ZPDRange, bool) {
	out := types.ZPDRange{Domain: domain}

	var inDomain []*types.CompetencyState
	for _, cs := range states {
		if cs != nil && cs.Domain == domain {
			inDomain = append(inDomain, cs)
		}
	}
	if len(inDomain) == 0 {
		return out, false
	}

	lower := 0.0
	upper := 1.0
	var zpdSum float64
	var zpdCount int

	for _, cs := range inDomain {
		zone := classifyZone(cs.PKnown, p)
		comp := types.ZPDCompetency{
			CompetencyID:    cs.CompetencyID,
			PKnown:          cs.PKnown,
			Zone:            zone,
			Recommendations: zoneRecommendations(zone, cs.PKnown),
		}
		switch zone {
		case types.ZoneMastered:
			if cs.PKnown > lower {
				lower = cs.PKnown
			}
		case types.ZoneBeyondReach:
			if cs.PKnown < upper {
				upper = cs.PKnown
			}
		default:
			zpdSum += cs.PKnown
			zpdCount++
		}
		out.Competencies = append(out.Competencies, comp)
	}

	out.LowerBound = lower
	out.UpperBound = upper
	if zpdCount > 0 {
		out.OptimalDifficulty = zpdSum / float64(zpdCount)
	} else {
		out.OptimalDifficulty = (lower + upper) / 2
	}
	return out, true
}

func classifyZone(pKnown float64, p Params) types.ZPDZone {
	switch {
	case pKnown > p.MasteredThreshold:
		return types.ZoneMastered
	case pKnown < p.BeyondReachThreshold:
		return types.ZoneBeyondReach
	default:
		return types.ZoneZPD
	}
}

// zoneRecommendations returns fixed pedagogical guidance per zone. The zpd
// zone subdivides by pKnown band in the copy only, not in classification.
func zoneRecommendations(zone types.ZPDZone, pKnown float64) []string {
	switch zone {
	case types.ZoneMastered:
		return []string{
			"advance to more challenging material",
			"schedule spaced review to retain mastery",
		}
	case types.ZoneBeyondReach:
		return []string{
			"revisit prerequisite competencies first",
			"provide worked examples before independent practice",
		}
	default:
		switch {
		case pKnown < 0.4:
			return []string{
				"use heavy scaffolding and guided practice",
				"keep tasks short with immediate feedback",
			}
		case pKnown > 0.7:
			return []string{
				"reduce scaffolding gradually",
				"introduce stretch problems near the mastery bar",
			}
		default:
			return []string{
				"continue at the current pace, this is the optimal band",
				"vary practice formats to sustain engagement",
			}
		}
	}
}
