package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventKindGateDecision    = "gate_decision"
	EventKindSignalsReceived = "signals_received"
)

// AdaptationEvent is an append-only audit record. Gate decisions carry the
// rule and action that fired; signal batches carry the raw signals so session
// history can be reconstructed for fatigue assessment.
type AdaptationEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LearnerID uuid.UUID  `gorm:"type:uuid;not null;index:idx_learner_created,priority:1" json:"learner_id"`
	SessionID *uuid.UUID `gorm:"type:uuid;index" json:"session_id,omitempty"`

	Kind           string         `gorm:"column:kind;not null;index" json:"kind"`
	RuleID         *uuid.UUID     `gorm:"type:uuid" json:"rule_id,omitempty"`
	TriggerSignals datatypes.JSON `gorm:"type:jsonb;column:trigger_signals" json:"trigger_signals"`
	Action         datatypes.JSON `gorm:"type:jsonb;column:action" json:"action,omitempty"`
	Outcome        *string        `gorm:"column:outcome" json:"outcome,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_learner_created,priority:2" json:"created_at"`
}

func (AdaptationEvent) TableName() string { return "adaptation_event" }

func (e *AdaptationEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *AdaptationEvent) Signals() ([]Signal, error) {
	if len(e.TriggerSignals) == 0 {
		return []Signal{}, nil
	}
	var out []Signal
	if err := json.Unmarshal(e.TriggerSignals, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *AdaptationEvent) SetSignals(signals []Signal) error {
	if signals == nil {
		signals = []Signal{}
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	e.TriggerSignals = datatypes.JSON(raw)
	return nil
}
