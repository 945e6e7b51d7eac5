package types

import (
	"time"

	"github.com/google/uuid"
)

// SignalKind is the closed enumeration of adaptation signal types. Signals
// are transient inputs: they are never stored verbatim except as trigger
// context embedded in adaptation events.
type SignalKind string

const (
	SignalAccuracy        SignalKind = "accuracy"
	SignalResponseTime    SignalKind = "response_time"
	SignalEngagement      SignalKind = "engagement"
	SignalHintUsage       SignalKind = "hint_usage"
	SignalSkipRate        SignalKind = "skip_rate"
	SignalTimeOnTask      SignalKind = "time_on_task"
	SignalRetryCount      SignalKind = "retry_count"
	SignalHelpSeeking     SignalKind = "help_seeking"
	SignalErrorPattern    SignalKind = "error_pattern"
	SignalMastery         SignalKind = "mastery"
	SignalFatigue         SignalKind = "fatigue"
	SignalSessionDuration SignalKind = "session_duration"
	SignalStreak          SignalKind = "streak"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalAccuracy, SignalResponseTime, SignalEngagement, SignalHintUsage,
		SignalSkipRate, SignalTimeOnTask, SignalRetryCount, SignalHelpSeeking,
		SignalErrorPattern, SignalMastery, SignalFatigue, SignalSessionDuration,
		SignalStreak:
		return true
	}
	return false
}

// HasEMASlot reports whether the kind maps to a dedicated EMA slot on the
// profile. Other kinds are valid inputs but do not move any EMA.
func (k SignalKind) HasEMASlot() bool {
	switch k {
	case SignalAccuracy, SignalResponseTime, SignalEngagement, SignalHintUsage, SignalSkipRate:
		return true
	}
	return false
}

type SignalContext struct {
	CompetencyID *uuid.UUID `json:"competency_id,omitempty"`
	Domain       string     `json:"domain,omitempty"`
	SessionID    *uuid.UUID `json:"session_id,omitempty"`
}

type Signal struct {
	Kind      SignalKind     `json:"kind"`
	Value     float64        `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
	Context   *SignalContext `json:"context,omitempty"`
}

func (s Signal) SessionID() *uuid.UUID {
	if s.Context == nil {
		return nil
	}
	return s.Context.SessionID
}
