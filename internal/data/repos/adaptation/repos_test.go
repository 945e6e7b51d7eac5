package adaptation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/data/repos/adaptation"
	"github.com/pathwise/pathwise-backend/internal/data/repos/testutil"
	"github.com/pathwise/pathwise-backend/internal/types"
)

func TestProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := adaptation.NewProfileRepo(db, testutil.Logger(t), 3)
	ctx := context.Background()

	learnerID := uuid.New()
	tenantID := uuid.New()

	got, err := repo.GetByLearnerID(ctx, tx, learnerID)
	if err != nil {
		t.Fatalf("get missing profile: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing profile, got %+v", got)
	}

	profile := &types.AdaptationProfile{
		TenantID:          tenantID,
		LearnerID:         learnerID,
		EMAAccuracy:       0.5,
		EMAEngagement:     0.5,
		CurrentDifficulty: 0.5,
		TargetSuccessRate: 0.8,
	}
	if err := repo.Create(ctx, tx, profile); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if profile.ID == uuid.Nil {
		t.Fatalf("expected generated profile id")
	}

	competencyID := uuid.New()
	state := &types.CompetencyState{
		ProfileID:    profile.ID,
		CompetencyID: competencyID,
		Domain:       "algebra",
		PLearn:       0.1,
		PGuess:       0.2,
		PSlip:        0.1,
		PKnown:       0.5,
	}
	if err := repo.UpsertCompetencyState(ctx, tx, state); err != nil {
		t.Fatalf("insert competency state: %v", err)
	}

	got, err = repo.GetByLearnerID(ctx, tx, learnerID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got == nil {
		t.Fatalf("expected profile after create")
	}
	if got.TenantID != tenantID {
		t.Fatalf("tenant id = %s, want %s", got.TenantID, tenantID)
	}
	if len(got.CompetencyStates) != 1 {
		t.Fatalf("expected 1 competency state, got %d", len(got.CompetencyStates))
	}
	if got.CompetencyStateFor(competencyID) == nil {
		t.Fatalf("expected state for competency %s", competencyID)
	}

	// History beyond the cap is trimmed to the newest entries on save.
	cs := got.CompetencyStates[0]
	history := make([]types.MasterySnapshot, 5)
	for i := range history {
		history[i] = types.MasterySnapshot{
			Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
			PKnown:    float64(i) / 10,
		}
	}
	if err := cs.SetHistory(history); err != nil {
		t.Fatalf("set history: %v", err)
	}
	got.EMAAccuracy = 0.72
	if err := repo.Save(ctx, tx, got); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	got, err = repo.GetByLearnerID(ctx, tx, learnerID)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if got.EMAAccuracy != 0.72 {
		t.Fatalf("ema accuracy = %v, want 0.72", got.EMAAccuracy)
	}
	stored, err := got.CompetencyStates[0].History()
	if err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("history length = %d, want cap 3", len(stored))
	}
	if stored[0].PKnown != 0.2 {
		t.Fatalf("oldest kept snapshot p_known = %v, want 0.2", stored[0].PKnown)
	}
}

func TestRuleRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := adaptation.NewRuleRepo(db, testutil.Logger(t))
	ctx := context.Background()

	tenantID := uuid.New()

	mkRule := func(name string, priority int, scope types.RuleScope, active bool) *types.AdaptationRule {
		rule := &types.AdaptationRule{
			TenantID:       tenantID,
			Name:           name,
			Scope:          scope,
			Priority:       priority,
			ConditionLogic: types.ConditionLogicAnd,
			IsActive:       active,
		}
		if err := rule.SetConditions([]types.Condition{{
			Signal:   types.SignalFatigue,
			Operator: types.OpGT,
			Value:    70,
		}}); err != nil {
			t.Fatalf("set conditions: %v", err)
		}
		if err := rule.SetAction(types.RuleAction{Type: "suggest_break"}); err != nil {
			t.Fatalf("set action: %v", err)
		}
		if err := repo.Create(ctx, tx, rule); err != nil {
			t.Fatalf("create rule %s: %v", name, err)
		}
		return rule
	}

	second := mkRule("second", 20, types.ScopeGlobal, true)
	first := mkRule("first", 10, types.ScopeDomain, true)
	mkRule("disabled", 5, types.ScopeGlobal, false)

	rules, err := repo.ListActive(ctx, tx, tenantID, nil)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("active rule count = %d, want 2", len(rules))
	}
	if rules[0].Name != "first" || rules[1].Name != "second" {
		t.Fatalf("priority order wrong: %s, %s", rules[0].Name, rules[1].Name)
	}

	scope := types.ScopeDomain
	rules, err = repo.ListActive(ctx, tx, tenantID, &scope)
	if err != nil {
		t.Fatalf("list active by scope: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != first.ID {
		t.Fatalf("expected only the domain rule, got %d rules", len(rules))
	}

	second.IsActive = false
	if err := repo.Update(ctx, tx, second); err != nil {
		t.Fatalf("update rule: %v", err)
	}
	got, err := repo.GetByID(ctx, tx, second.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got == nil || got.IsActive {
		t.Fatalf("expected deactivated rule")
	}

	got, err = repo.GetByID(ctx, tx, uuid.New())
	if err != nil {
		t.Fatalf("get missing rule: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing rule")
	}
}

func TestEventRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := adaptation.NewEventRepo(db, testutil.Logger(t))
	ctx := context.Background()

	tenantID := uuid.New()
	learnerID := uuid.New()
	sessionA := uuid.New()
	sessionB := uuid.New()

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	record := func(session uuid.UUID, kind string, at time.Time) {
		row := &types.AdaptationEvent{
			TenantID:  tenantID,
			LearnerID: learnerID,
			SessionID: &session,
			Kind:      kind,
			CreatedAt: at,
		}
		if err := row.SetSignals([]types.Signal{{
			Kind:      types.SignalAccuracy,
			Value:     1,
			Timestamp: at,
		}}); err != nil {
			t.Fatalf("set signals: %v", err)
		}
		if err := repo.Append(ctx, tx, row); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	record(sessionA, types.EventKindSignalsReceived, base)
	record(sessionA, types.EventKindGateDecision, base.Add(2*time.Minute))
	record(sessionB, types.EventKindSignalsReceived, base.Add(5*time.Minute))

	events, err := repo.QueryByLearner(ctx, tx, learnerID, nil, nil)
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("event count = %d, want 3", len(events))
	}
	if !events[0].CreatedAt.Before(events[1].CreatedAt) {
		t.Fatalf("expected oldest-first ordering")
	}

	events, err = repo.QueryByLearner(ctx, tx, learnerID, &sessionA, nil)
	if err != nil {
		t.Fatalf("query by session: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("session event count = %d, want 2", len(events))
	}
	signals, err := events[0].Signals()
	if err != nil {
		t.Fatalf("decode signals: %v", err)
	}
	if len(signals) != 1 || signals[0].Kind != types.SignalAccuracy {
		t.Fatalf("unexpected decoded signals: %+v", signals)
	}

	since := base.Add(time.Minute)
	events, err = repo.QueryByLearner(ctx, tx, learnerID, nil, &since)
	if err != nil {
		t.Fatalf("query since: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("since event count = %d, want 2", len(events))
	}
}
