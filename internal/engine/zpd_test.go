package engine

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

func stateWith(domain string, pKnown float64) *types.CompetencyState {
	return &types.CompetencyState{
		ID:           uuid.New(),
		CompetencyID: uuid.New(),
		Domain:       domain,
		PKnown:       pKnown,
	}
}

func TestCalculateZPD_ClassifiesZonesAndBounds(t *testing.T) {
	p := DefaultParams()
	states := []*types.CompetencyState{
		stateWith("math", 0.85),
		stateWith("math", 0.55),
		stateWith("math", 0.25),
	}

	zpd, ok := CalculateZPD(states, "math", p)
	if !ok {
		t.Fatalf("expected data for domain")
	}
	wantZones := []types.ZPDZone{types.ZoneMastered, types.ZoneZPD, types.ZoneBeyondReach}
	if len(zpd.Competencies) != 3 {
		t.Fatalf("expected 3 competencies, got %d", len(zpd.Competencies))
	}
	for i, comp := range zpd.Competencies {
		if comp.Zone != wantZones[i] {
			t.Fatalf("competency %d: expected zone %v, got %v", i, wantZones[i], comp.Zone)
		}
		if len(comp.Recommendations) == 0 {
			t.Fatalf("competency %d: expected recommendations", i)
		}
	}
	if !almostEqual(zpd.LowerBound, 0.85, 1e-9) {
		t.Fatalf("expected lower bound 0.85, got %v", zpd.LowerBound)
	}
	if !almostEqual(zpd.UpperBound, 0.25, 1e-9) {
		t.Fatalf("expected upper bound 0.25, got %v", zpd.UpperBound)
	}
	// One competency in the zpd zone: optimal difficulty is its pKnown.
	if !almostEqual(zpd.OptimalDifficulty, 0.55, 1e-9) {
		t.Fatalf("expected optimal 0.55, got %v", zpd.OptimalDifficulty)
	}
}

func TestCalculateZPD_NoZPDCompetenciesUsesMidpoint(t *testing.T) {
	p := DefaultParams()
	states := []*types.CompetencyState{
		stateWith("reading", 0.9),
		stateWith("reading", 0.1),
	}
	zpd, ok := CalculateZPD(states, "reading", p)
	if !ok {
		t.Fatalf("expected data for domain")
	}
	if !almostEqual(zpd.OptimalDifficulty, (0.9+0.1)/2, 1e-9) {
		t.Fatalf("expected midpoint optimal, got %v", zpd.OptimalDifficulty)
	}
}

func TestCalculateZPD_DefaultBoundsWhenZonesEmpty(t *testing.T) {
	p := DefaultParams()
	states := []*types.CompetencyState{stateWith("science", 0.5)}
	zpd, ok := CalculateZPD(states, "science", p)
	if !ok {
		t.Fatalf("expected data for domain")
	}
	if zpd.LowerBound != 0 || zpd.UpperBound != 1 {
		t.Fatalf("expected default bounds [0,1], got [%v,%v]", zpd.LowerBound, zpd.UpperBound)
	}
}

func TestCalculateZPD_UnknownDomainHasNoData(t *testing.T) {
	p := DefaultParams()
	states := []*types.CompetencyState{stateWith("math", 0.5)}
	if _, ok := CalculateZPD(states, "history", p); ok {
		t.Fatalf("expected no data for unseen domain")
	}
}

func TestZoneRecommendations_SubBandsDiffer(t *testing.T) {
	low := zoneRecommendations(types.ZoneZPD, 0.35)
	mid := zoneRecommendations(types.ZoneZPD, 0.55)
	high := zoneRecommendations(types.ZoneZPD, 0.75)
	if low[0] == mid[0] || mid[0] == high[0] {
		t.Fatalf("expected distinct guidance per sub-band")
	}
}
