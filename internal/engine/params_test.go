package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultParams_MatchDocumentedModel(t *testing.T) {
	p := DefaultParams()
	if p.EMAAlpha != 0.3 {
		t.Fatalf("expected alpha 0.3, got %v", p.EMAAlpha)
	}
	if p.DifficultyMin != 0.1 || p.DifficultyMax != 1.0 || p.DifficultyStep != 0.05 {
		t.Fatalf("unexpected difficulty band: %+v", p)
	}
	if p.MasteryHistoryCap != 500 {
		t.Fatalf("expected history cap 500, got %d", p.MasteryHistoryCap)
	}
	w := p.FatigueWeights
	sum := w.AccuracyDecline + w.ResponseTimeIncrease + w.HintUsageIncrease + w.SessionDuration + w.ErrorBurstiness
	if !almostEqual(sum, 1, 1e-9) {
		t.Fatalf("fatigue weights must sum to 1, got %v", sum)
	}
	n := p.NextStepWeights
	sum = n.MasteryGain + n.EngagementProbability + n.TimeEfficiency + n.PrerequisiteCoverage + n.CuriosityAlignment
	if !almostEqual(sum, 1, 1e-9) {
		t.Fatalf("next-step weights must sum to 1, got %v", sum)
	}
}

func TestLoadParams_EmptyPathReturnsDefaults(t *testing.T) {
	p, err := LoadParams("")
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if p != DefaultParams() {
		t.Fatalf("expected defaults")
	}
}

func TestLoadParams_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	raw := []byte("ema_alpha: 0.4\nmastery_history_cap: 100\nfatigue_weights:\n  accuracy_decline: 0.5\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if p.EMAAlpha != 0.4 || p.MasteryHistoryCap != 100 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.FatigueWeights.AccuracyDecline != 0.5 {
		t.Fatalf("nested override not applied: %+v", p.FatigueWeights)
	}
	// Untouched fields keep defaults.
	if p.DifficultyStep != 0.05 {
		t.Fatalf("default lost: %+v", p)
	}
}
