package types

import (
	"github.com/google/uuid"
)

// Trend classifies the recent direction of a competency's mastery estimate.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

type MasteryEstimate struct {
	CompetencyID      uuid.UUID `json:"competency_id"`
	PKnown            float64   `json:"p_known"`
	Confidence        float64   `json:"confidence"`
	Trend             Trend     `json:"trend"`
	TotalObservations int       `json:"total_observations"`
}

// ZPDZone classifies a competency relative to the learner's zone of proximal
// development.
type ZPDZone string

const (
	ZoneMastered    ZPDZone = "mastered"
	ZoneZPD         ZPDZone = "zpd"
	ZoneBeyondReach ZPDZone = "beyond_reach"
)

type ZPDCompetency struct {
	CompetencyID    uuid.UUID `json:"competency_id"`
	PKnown          float64   `json:"p_known"`
	Zone            ZPDZone   `json:"zone"`
	Recommendations []string  `json:"recommendations"`
}

type ZPDRange struct {
	Domain            string          `json:"domain"`
	LowerBound        float64         `json:"lower_bound"`
	UpperBound        float64         `json:"upper_bound"`
	OptimalDifficulty float64         `json:"optimal_difficulty"`
	Competencies      []ZPDCompetency `json:"competencies"`
}

// FatigueRecommendation is the closed set of actions the fatigue assessor
// can suggest, ordered by severity.
type FatigueRecommendation string

const (
	FatigueContinue         FatigueRecommendation = "continue"
	FatigueReduceDifficulty FatigueRecommendation = "reduce_difficulty"
	FatigueSwitchTopic      FatigueRecommendation = "switch_topic"
	FatigueTakeBreak        FatigueRecommendation = "take_break"
	FatigueEndSession       FatigueRecommendation = "end_session"
)

type FatigueComponents struct {
	AccuracyDecline      float64 `json:"accuracy_decline"`
	ResponseTimeIncrease float64 `json:"response_time_increase"`
	HintUsageIncrease    float64 `json:"hint_usage_increase"`
	SessionDuration      float64 `json:"session_duration"`
	ErrorBurstiness      float64 `json:"error_burstiness"`
}

type FatigueAssessment struct {
	SessionID      uuid.UUID             `json:"session_id"`
	Score          float64               `json:"score"`
	Components     FatigueComponents     `json:"components"`
	Recommendation FatigueRecommendation `json:"recommendation"`
	SignalCount    int                   `json:"signal_count"`
}

// CandidateStep is one next-step candidate supplied by the caller.
type CandidateStep struct {
	ID                       string      `json:"id,omitempty"`
	CompetencyID             uuid.UUID   `json:"competency_id"`
	Difficulty               float64     `json:"difficulty"`
	EstimatedDurationMinutes float64     `json:"estimated_duration_minutes"`
	Prerequisites            []uuid.UUID `json:"prerequisites,omitempty"`
}

type ScoreFactors struct {
	MasteryGain           float64 `json:"mastery_gain"`
	EngagementProbability float64 `json:"engagement_probability"`
	TimeEfficiency        float64 `json:"time_efficiency"`
	PrerequisiteCoverage  float64 `json:"prerequisite_coverage"`
	CuriosityAlignment    float64 `json:"curiosity_alignment"`
}

type ScoredStep struct {
	Step    CandidateStep `json:"step"`
	Score   float64       `json:"score"`
	Factors ScoreFactors  `json:"factors"`
}

// GateInput narrows which scoped rules apply during decision-gate
// evaluation.
type GateInput struct {
	CurrentDomain       string     `json:"current_domain,omitempty"`
	CurrentCompetencyID *uuid.UUID `json:"current_competency_id,omitempty"`
	SessionID           *uuid.UUID `json:"session_id,omitempty"`
}

// GateResult reports the first satisfied rule, if any. Both fields are nil
// when no rule fired; that is a normal outcome, not an error.
type GateResult struct {
	TriggeredRule *AdaptationRule `json:"triggered_rule,omitempty"`
	Action        *RuleAction     `json:"action,omitempty"`
}
