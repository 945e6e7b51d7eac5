package engine

import (
	"math"

	"github.com/google/uuid"

	"github.com/pathwise/pathwise-backend/internal/types"
)

const eqEpsilon = 1e-9

// LiveSignalValue derives the current reading for a signal kind from profile
// state. This is what decision-gate conditions compare against.
func LiveSignalValue(p *types.AdaptationProfile, kind types.SignalKind, params Params) float64 {
	switch kind {
	case types.SignalAccuracy:
		return p.EMAAccuracy
	case types.SignalResponseTime:
		return p.EMAResponseTimeMs
	case types.SignalEngagement:
		return p.EMAEngagement
	case types.SignalHintUsage:
		return p.EMAHintUsage
	case types.SignalSkipRate:
		return p.EMASkipRate
	case types.SignalMastery:
		return meanMastery(p.CompetencyStates, params)
	case types.SignalFatigue:
		return liveFatigueProxy(p, params)
	case types.SignalSessionDuration, types.SignalTimeOnTask:
		return p.TotalTimeMinutes
	case types.SignalStreak, types.SignalRetryCount:
		return float64(p.SessionCount)
	case types.SignalHelpSeeking:
		return p.EMAHintUsage
	case types.SignalErrorPattern:
		return 1 - p.EMAAccuracy
	default:
		return 0
	}
}

func meanMastery(states []*types.CompetencyState, params Params) float64 {
	if len(states) == 0 {
		return params.DefaultPKnown
	}
	var sum float64
	for _, cs := range states {
		sum += cs.PKnown
	}
	return sum / float64(len(states))
}

// liveFatigueProxy approximates session fatigue from EMA state alone, using
// the session-fatigue component weights over EMA-derived proxies. It is a
// deliberate approximation of AssessFatigue for rule conditions that must
// evaluate without session history; the two are not expected to agree.
func liveFatigueProxy(p *types.AdaptationProfile, params Params) float64 {
	w := params.FatigueWeights
	errRate := clampFloat((1-p.EMAAccuracy)*100, 0, 100)
	skip := clampFloat(p.EMASkipRate*100, 0, 100)
	hint := clampFloat(p.EMAHintUsage*100, 0, 100)
	duration := clampFloat(p.TotalTimeMinutes/fatigueSessionCapMinutes*100, 0, 100)
	return w.AccuracyDecline*errRate +
		w.ResponseTimeIncrease*skip +
		w.HintUsageIncrease*hint +
		w.SessionDuration*duration +
		w.ErrorBurstiness*errRate
}

// EvaluateCondition compares a live reading against one condition. A between
// with no secondary value cannot hold.
func EvaluateCondition(value float64, cond types.Condition) bool {
	switch cond.Operator {
	case types.OpGT:
		return value > cond.Value
	case types.OpGTE:
		return value >= cond.Value
	case types.OpLT:
		return value < cond.Value
	case types.OpLTE:
		return value <= cond.Value
	case types.OpEQ:
		return math.Abs(value-cond.Value) <= eqEpsilon
	case types.OpNEQ:
		return math.Abs(value-cond.Value) > eqEpsilon
	case types.OpBetween:
		if cond.SecondaryValue == nil {
			return false
		}
		return value >= cond.Value && value <= *cond.SecondaryValue
	default:
		return false
	}
}

// RuleApplies checks the rule's scope against the gate input. Scoped rules
// with no matching input field are skipped.
func RuleApplies(rule *types.AdaptationRule, input types.GateInput) bool {
	switch rule.Scope {
	case types.ScopeDomain:
		return rule.ScopeID != nil && input.CurrentDomain != "" && *rule.ScopeID == input.CurrentDomain
	case types.ScopeCompetency:
		if rule.ScopeID == nil || input.CurrentCompetencyID == nil {
			return false
		}
		id, err := uuid.Parse(*rule.ScopeID)
		if err != nil {
			return false
		}
		return id == *input.CurrentCompetencyID
	default:
		return true
	}
}

// RuleSatisfied evaluates all of a rule's conditions against live profile
// state, combined per the rule's condition logic. An empty condition list is
// always satisfied; an undecodable condition list never is.
func RuleSatisfied(profile *types.AdaptationProfile, rule *types.AdaptationRule, params Params) bool {
	conds, err := rule.ConditionList()
	if err != nil {
		return false
	}
	if len(conds) == 0 {
		return true
	}
	anyLogic := rule.ConditionLogic == types.ConditionLogicOr
	for _, cond := range conds {
		ok := EvaluateCondition(LiveSignalValue(profile, cond.Signal, params), cond)
		if anyLogic && ok {
			return true
		}
		if !anyLogic && !ok {
			return false
		}
	}
	return !anyLogic
}

// EvaluateGate walks rules in the given (ascending-priority) order and
// returns the first applicable, satisfied rule, or nil when none fires.
func EvaluateGate(profile *types.AdaptationProfile, rules []*types.AdaptationRule, input types.GateInput, params Params) *types.AdaptationRule {
	for _, rule := range rules {
		if rule == nil || !rule.IsActive {
			continue
		}
		if !RuleApplies(rule, input) {
			continue
		}
		if RuleSatisfied(profile, rule, params) {
			return rule
		}
	}
	return nil
}
