package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/data/repos"
	"github.com/pathwise/pathwise-backend/internal/engine"
	"github.com/pathwise/pathwise-backend/internal/platform/apierr"
	"github.com/pathwise/pathwise-backend/internal/platform/logger"
	"github.com/pathwise/pathwise-backend/internal/platform/redislock"
	"github.com/pathwise/pathwise-backend/internal/types"
)

const (
	learnerLockTTL  = 10 * time.Second
	learnerLockWait = 5 * time.Second
)

// AdaptationService is the adaptation engine's exposed API. Only ApplySignals
// mutates profile state; every other operation derives read-only views.
type AdaptationService interface {
	GetOrCreateProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*types.AdaptationProfile, error)
	ApplySignals(ctx context.Context, tenantID, learnerID uuid.UUID, signals []types.Signal) (*types.AdaptationProfile, error)
	GetMasteryEstimate(ctx context.Context, tenantID, learnerID, competencyID uuid.UUID) (*types.MasteryEstimate, error)
	CalculateZPD(ctx context.Context, tenantID, learnerID uuid.UUID, domain string) (*types.ZPDRange, error)
	GetOptimalDifficulty(ctx context.Context, tenantID, learnerID uuid.UUID, domain string) (float64, error)
	AssessFatigue(ctx context.Context, tenantID, learnerID, sessionID uuid.UUID) (*types.FatigueAssessment, error)
	EvaluateDecisionGate(ctx context.Context, tenantID, learnerID uuid.UUID, input types.GateInput) (*types.GateResult, error)
	ScoreNextSteps(ctx context.Context, tenantID, learnerID uuid.UUID, candidates []types.CandidateStep) ([]types.ScoredStep, error)
	GetRules(ctx context.Context, tenantID uuid.UUID, scope *types.RuleScope) ([]*types.AdaptationRule, error)
	CreateRule(ctx context.Context, tenantID uuid.UUID, rule *types.AdaptationRule) (*types.AdaptationRule, error)
	UpdateRule(ctx context.Context, tenantID uuid.UUID, rule *types.AdaptationRule) (*types.AdaptationRule, error)
	GetAdaptationHistory(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID *uuid.UUID, since *time.Time) ([]*types.AdaptationEvent, error)
}

type adaptationService struct {
	db     *gorm.DB
	log    *logger.Logger
	params engine.Params
	locker redislock.Locker

	profileRepo repos.ProfileRepo
	ruleRepo    repos.RuleRepo
	eventRepo   repos.EventRepo
}

func NewAdaptationService(
	db *gorm.DB,
	log *logger.Logger,
	params engine.Params,
	locker redislock.Locker,
	profileRepo repos.ProfileRepo,
	ruleRepo repos.RuleRepo,
	eventRepo repos.EventRepo,
) AdaptationService {
	return &adaptationService{
		db:          db,
		log:         log.With("service", "AdaptationService"),
		params:      params,
		locker:      locker,
		profileRepo: profileRepo,
		ruleRepo:    ruleRepo,
		eventRepo:   eventRepo,
	}
}

func (s *adaptationService) GetOrCreateProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*types.AdaptationProfile, error) {
	return s.getOrCreateProfile(ctx, nil, tenantID, learnerID)
}

func (s *adaptationService) getOrCreateProfile(ctx context.Context, tx *gorm.DB, tenantID, learnerID uuid.UUID) (*types.AdaptationProfile, error) {
	profile, err := s.profileRepo.GetByLearnerID(ctx, tx, learnerID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile != nil {
		if profile.TenantID != tenantID {
			return nil, apierr.TenantMismatch("profile for learner belongs to a different tenant")
		}
		return profile, nil
	}

	profile = &types.AdaptationProfile{
		TenantID:          tenantID,
		LearnerID:         learnerID,
		EMAAccuracy:       0.5,
		EMAEngagement:     0.5,
		CurrentDifficulty: 0.5,
		TargetSuccessRate: 0.8,
	}
	if err := s.profileRepo.Create(ctx, tx, profile); err != nil {
		return nil, apierr.Storage(err)
	}
	s.log.Info("created adaptation profile", "tenant_id", tenantID, "learner_id", learnerID)
	return profile, nil
}

// ApplySignals is the single write path. The learner's lock serializes
// concurrent batches, and the whole batch commits in one transaction so no
// partial mutation is ever visible.
func (s *adaptationService) ApplySignals(ctx context.Context, tenantID, learnerID uuid.UUID, signals []types.Signal) (*types.AdaptationProfile, error) {
	if len(signals) == 0 {
		return nil, apierr.Validation("signal batch is empty")
	}
	for i, sig := range signals {
		if !sig.Kind.Valid() {
			return nil, apierr.Validation("unknown signal kind %q", sig.Kind).WithDetail("index", i)
		}
	}

	release, err := s.locker.Acquire(ctx, "adaptation:learner:"+learnerID.String(), learnerLockTTL, learnerLockWait)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release learner lock", "learner_id", learnerID, "error", err)
		}
	}()

	// EMA and BKT are recency-weighted; order matters.
	ordered := make([]types.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var profile *types.AdaptationProfile
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		profile, err = s.getOrCreateProfile(ctx, tx, tenantID, learnerID)
		if err != nil {
			return err
		}

		for _, sig := range ordered {
			s.applySignal(profile, sig)
		}
		profile.CurrentDifficulty = engine.AdjustDifficulty(profile.CurrentDifficulty, profile.EMAAccuracy, s.params)
		last := ordered[len(ordered)-1].Timestamp
		profile.EMALastUpdated = &last

		if err := s.appendSignalEvent(ctx, tx, profile, ordered); err != nil {
			return err
		}
		if err := s.profileRepo.Save(ctx, tx, profile); err != nil {
			return apierr.Storage(err)
		}
		return nil
	})
	if txErr != nil {
		return nil, asAPIError(txErr)
	}

	s.log.Debug("applied signal batch",
		"learner_id", learnerID,
		"signals", len(ordered),
		"difficulty", profile.CurrentDifficulty)
	return profile, nil
}

func (s *adaptationService) applySignal(profile *types.AdaptationProfile, sig types.Signal) {
	alpha := s.params.EMAAlpha
	switch sig.Kind {
	case types.SignalAccuracy:
		profile.EMAAccuracy = engine.EMA(profile.EMAAccuracy, sig.Value, alpha)
		s.applyBKT(profile, sig)
	case types.SignalResponseTime:
		profile.EMAResponseTimeMs = engine.EMA(profile.EMAResponseTimeMs, sig.Value, alpha)
	case types.SignalEngagement:
		profile.EMAEngagement = engine.EMA(profile.EMAEngagement, sig.Value, alpha)
	case types.SignalHintUsage:
		profile.EMAHintUsage = engine.EMA(profile.EMAHintUsage, sig.Value, alpha)
	case types.SignalSkipRate:
		profile.EMASkipRate = engine.EMA(profile.EMASkipRate, sig.Value, alpha)
	case types.SignalTimeOnTask:
		profile.TotalTimeMinutes += sig.Value
	case types.SignalSessionDuration:
		// End-of-session marker: accounts the session's minutes and count.
		profile.TotalTimeMinutes += sig.Value
		profile.SessionCount++
	}
}

// applyBKT folds one accuracy observation into the competency's BKT state,
// creating the state on first observation.
func (s *adaptationService) applyBKT(profile *types.AdaptationProfile, sig types.Signal) {
	if sig.Context == nil || sig.Context.CompetencyID == nil {
		return
	}
	competencyID := *sig.Context.CompetencyID

	cs := profile.CompetencyStateFor(competencyID)
	if cs == nil {
		cs = &types.CompetencyState{
			ProfileID:    profile.ID,
			CompetencyID: competencyID,
			Domain:       sig.Context.Domain,
			PLearn:       s.params.DefaultPLearn,
			PGuess:       s.params.DefaultPGuess,
			PSlip:        s.params.DefaultPSlip,
			PKnown:       s.params.DefaultPKnown,
		}
		profile.CompetencyStates = append(profile.CompetencyStates, cs)
	}

	wasCorrect := sig.Value >= 0.5
	updated := engine.UpdateBKT(cs.Params(), wasCorrect)
	cs.PKnown = updated.PKnown
	cs.Observations++
	observedAt := sig.Timestamp
	cs.LastObservationAt = &observedAt

	history, err := cs.History()
	if err != nil {
		// Corrupt history is replaced rather than blocking the update.
		s.log.Warn("resetting undecodable mastery history", "competency_id", competencyID, "error", err)
		history = []types.MasterySnapshot{}
	}
	history = append(history, types.MasterySnapshot{
		Timestamp:  sig.Timestamp,
		PKnown:     cs.PKnown,
		WasCorrect: wasCorrect,
	})
	if err := cs.SetHistory(history); err != nil {
		s.log.Error("failed to encode mastery history", "competency_id", competencyID, "error", err)
	}
}

func (s *adaptationService) appendSignalEvent(ctx context.Context, tx *gorm.DB, profile *types.AdaptationProfile, signals []types.Signal) error {
	event := &types.AdaptationEvent{
		TenantID:  profile.TenantID,
		LearnerID: profile.LearnerID,
		Kind:      types.EventKindSignalsReceived,
	}
	for _, sig := range signals {
		if id := sig.SessionID(); id != nil {
			event.SessionID = id
			break
		}
	}
	if err := event.SetSignals(signals); err != nil {
		return apierr.Storage(err)
	}
	if err := s.eventRepo.Append(ctx, tx, event); err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (s *adaptationService) GetMasteryEstimate(ctx context.Context, tenantID, learnerID, competencyID uuid.UUID) (*types.MasteryEstimate, error) {
	profile, err := s.loadProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	cs := profile.CompetencyStateFor(competencyID)
	if cs == nil {
		return nil, apierr.NotFound("no recorded state for competency %s", competencyID)
	}

	history, err := cs.History()
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return &types.MasteryEstimate{
		CompetencyID:      competencyID,
		PKnown:            cs.PKnown,
		Confidence:        engine.Confidence(cs.Observations, s.params.ConfidenceScale),
		Trend:             engine.MasteryTrend(history, s.params),
		TotalObservations: cs.Observations,
	}, nil
}

func (s *adaptationService) CalculateZPD(ctx context.Context, tenantID, learnerID uuid.UUID, domain string) (*types.ZPDRange, error) {
	profile, err := s.loadProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	zpd, ok := engine.CalculateZPD(profile.CompetencyStates, domain, s.params)
	if !ok {
		return nil, apierr.NoData("no competency states recorded for domain %q", domain)
	}
	return &zpd, nil
}

// GetOptimalDifficulty prefers the domain's ZPD-derived difficulty and falls
// back to the profile's current difficulty when the domain has no data.
func (s *adaptationService) GetOptimalDifficulty(ctx context.Context, tenantID, learnerID uuid.UUID, domain string) (float64, error) {
	profile, err := s.loadProfile(ctx, tenantID, learnerID)
	if err != nil {
		return 0, err
	}
	if zpd, ok := engine.CalculateZPD(profile.CompetencyStates, domain, s.params); ok {
		return zpd.OptimalDifficulty, nil
	}
	return profile.CurrentDifficulty, nil
}

// AssessFatigue reconstructs the session's signal stream from the event log
// and scores it. Only signals tagged with the session count as telemetry:
// gate-decision events embed synthetic live readings with no signal context,
// and those must not feed the session components. A session with no recorded
// signals scores 0, not an error.
func (s *adaptationService) AssessFatigue(ctx context.Context, tenantID, learnerID, sessionID uuid.UUID) (*types.FatigueAssessment, error) {
	if _, err := s.loadProfile(ctx, tenantID, learnerID); err != nil {
		return nil, err
	}

	events, err := s.eventRepo.QueryByLearner(ctx, nil, learnerID, &sessionID, nil)
	if err != nil {
		return nil, apierr.Storage(err)
	}

	var signals []types.Signal
	for _, event := range events {
		decoded, err := event.Signals()
		if err != nil {
			s.log.Warn("skipping event with undecodable signals", "session_id", sessionID, "error", err)
			continue
		}
		for _, sig := range decoded {
			if id := sig.SessionID(); id != nil && *id == sessionID {
				signals = append(signals, sig)
			}
		}
	}
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Timestamp.Before(signals[j].Timestamp)
	})

	components, score, recommendation := engine.AssessFatigue(signals, s.params)
	return &types.FatigueAssessment{
		SessionID:      sessionID,
		Score:          score,
		Components:     components,
		Recommendation: recommendation,
		SignalCount:    len(signals),
	}, nil
}

// EvaluateDecisionGate walks the tenant's active rules in priority order
// against live profile state. A fired rule is recorded as an audit event;
// no rule firing is a normal outcome.
func (s *adaptationService) EvaluateDecisionGate(ctx context.Context, tenantID, learnerID uuid.UUID, input types.GateInput) (*types.GateResult, error) {
	profile, err := s.getOrCreateProfile(ctx, nil, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	rules, err := s.ruleRepo.ListActive(ctx, nil, tenantID, nil)
	if err != nil {
		return nil, apierr.Storage(err)
	}

	fired := engine.EvaluateGate(profile, rules, input, s.params)
	if fired == nil {
		return &types.GateResult{}, nil
	}

	action, err := fired.RuleAction()
	if err != nil {
		return nil, apierr.Storage(err)
	}

	event := &types.AdaptationEvent{
		TenantID:  tenantID,
		LearnerID: learnerID,
		SessionID: input.SessionID,
		Kind:      types.EventKindGateDecision,
		RuleID:    &fired.ID,
		Action:    fired.Action,
	}
	if action != nil {
		event.Outcome = &action.Type
	}
	if err := event.SetSignals(gateTriggerSignals(profile, fired, s.params)); err != nil {
		return nil, apierr.Storage(err)
	}
	if err := s.eventRepo.Append(ctx, nil, event); err != nil {
		return nil, apierr.Storage(err)
	}

	s.log.Info("decision gate fired",
		"learner_id", learnerID,
		"rule", fired.Name,
		"priority", fired.Priority)
	return &types.GateResult{TriggeredRule: fired, Action: action}, nil
}

// gateTriggerSignals captures the live readings the fired rule was judged
// against, for the audit trail.
func gateTriggerSignals(profile *types.AdaptationProfile, rule *types.AdaptationRule, params engine.Params) []types.Signal {
	conds, err := rule.ConditionList()
	if err != nil {
		return nil
	}
	now := time.Now().UTC()
	out := make([]types.Signal, 0, len(conds))
	for _, cond := range conds {
		out = append(out, types.Signal{
			Kind:      cond.Signal,
			Value:     engine.LiveSignalValue(profile, cond.Signal, params),
			Timestamp: now,
		})
	}
	return out
}

func (s *adaptationService) ScoreNextSteps(ctx context.Context, tenantID, learnerID uuid.UUID, candidates []types.CandidateStep) ([]types.ScoredStep, error) {
	profile, err := s.getOrCreateProfile(ctx, nil, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	return engine.ScoreNextSteps(profile, candidates, s.params), nil
}

func (s *adaptationService) GetRules(ctx context.Context, tenantID uuid.UUID, scope *types.RuleScope) ([]*types.AdaptationRule, error) {
	if scope != nil && !scope.Valid() {
		return nil, apierr.Validation("unknown rule scope %q", *scope)
	}
	rules, err := s.ruleRepo.ListActive(ctx, nil, tenantID, scope)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return rules, nil
}

func (s *adaptationService) CreateRule(ctx context.Context, tenantID uuid.UUID, rule *types.AdaptationRule) (*types.AdaptationRule, error) {
	if rule == nil {
		return nil, apierr.Validation("rule is required")
	}
	rule.TenantID = tenantID
	if rule.ConditionLogic == "" {
		rule.ConditionLogic = types.ConditionLogicAnd
	}
	if rule.Scope == "" {
		rule.Scope = types.ScopeGlobal
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Create(ctx, nil, rule); err != nil {
		return nil, apierr.Storage(err)
	}
	return rule, nil
}

func (s *adaptationService) UpdateRule(ctx context.Context, tenantID uuid.UUID, rule *types.AdaptationRule) (*types.AdaptationRule, error) {
	if rule == nil || rule.ID == uuid.Nil {
		return nil, apierr.Validation("rule id is required")
	}
	existing, err := s.ruleRepo.GetByID(ctx, nil, rule.ID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if existing == nil {
		return nil, apierr.NotFound("rule %s not found", rule.ID)
	}
	if existing.TenantID != tenantID {
		return nil, apierr.TenantMismatch("rule %s belongs to a different tenant", rule.ID)
	}

	rule.TenantID = tenantID
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Update(ctx, nil, rule); err != nil {
		return nil, apierr.Storage(err)
	}
	return rule, nil
}

func validateRule(rule *types.AdaptationRule) error {
	if rule.Name == "" {
		return apierr.Validation("rule name is required")
	}
	if !rule.Scope.Valid() {
		return apierr.Validation("unknown rule scope %q", rule.Scope)
	}
	if rule.Scope != types.ScopeGlobal && (rule.ScopeID == nil || *rule.ScopeID == "") {
		return apierr.Validation("scope_id is required for %s-scoped rules", rule.Scope)
	}
	if rule.ConditionLogic != types.ConditionLogicAnd && rule.ConditionLogic != types.ConditionLogicOr {
		return apierr.Validation("condition logic must be AND or OR")
	}

	conds, err := rule.ConditionList()
	if err != nil {
		return apierr.Validation("conditions are not valid JSON: %v", err)
	}
	for i, cond := range conds {
		if !cond.Signal.Valid() {
			return apierr.Validation("unknown signal kind %q", cond.Signal).WithDetail("condition", i)
		}
		if !cond.Operator.Valid() {
			return apierr.Validation("unknown operator %q", cond.Operator).WithDetail("condition", i)
		}
		if cond.Operator == types.OpBetween && cond.SecondaryValue == nil {
			return apierr.Validation("between requires a secondary value").WithDetail("condition", i)
		}
	}

	action, err := rule.RuleAction()
	if err != nil {
		return apierr.Validation("action is not valid JSON: %v", err)
	}
	if action == nil || action.Type == "" {
		return apierr.Validation("rule action type is required")
	}
	return nil
}

func (s *adaptationService) GetAdaptationHistory(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID *uuid.UUID, since *time.Time) ([]*types.AdaptationEvent, error) {
	events, err := s.eventRepo.QueryByLearner(ctx, nil, learnerID, sessionID, since)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	out := make([]*types.AdaptationEvent, 0, len(events))
	for _, event := range events {
		if event.TenantID == tenantID {
			out = append(out, event)
		}
	}
	return out, nil
}

// loadProfile is the read-path loader: absent profiles are not-found rather
// than lazily created.
func (s *adaptationService) loadProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*types.AdaptationProfile, error) {
	profile, err := s.profileRepo.GetByLearnerID(ctx, nil, learnerID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile == nil {
		return nil, apierr.NotFound("no adaptation profile for learner %s", learnerID)
	}
	if profile.TenantID != tenantID {
		return nil, apierr.TenantMismatch("profile for learner belongs to a different tenant")
	}
	return profile, nil
}

// asAPIError preserves structured failures crossing a transaction boundary
// and wraps anything else as storage.
func asAPIError(err error) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apierr.Storage(err)
}
