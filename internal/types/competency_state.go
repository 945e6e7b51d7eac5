package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CompetencyState holds the Bayesian Knowledge Tracing state for one
// (profile, competency) pair. MasteryHistory is an append-only JSONB list of
// MasterySnapshot, truncated to the most recent entries at persistence time.
type CompetencyState struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID    uuid.UUID `gorm:"type:uuid;not null;index:idx_profile_competency,unique,priority:1" json:"profile_id"`
	CompetencyID uuid.UUID `gorm:"type:uuid;not null;index:idx_profile_competency,unique,priority:2" json:"competency_id"`
	Domain       string    `gorm:"column:domain;not null;index" json:"domain"`

	PLearn float64 `gorm:"column:p_learn;not null;default:0.1" json:"p_learn"`
	PGuess float64 `gorm:"column:p_guess;not null;default:0.2" json:"p_guess"`
	PSlip  float64 `gorm:"column:p_slip;not null;default:0.1" json:"p_slip"`
	PKnown float64 `gorm:"column:p_known;not null;default:0.5" json:"p_known"`

	Observations      int            `gorm:"column:observations;not null;default:0" json:"observations"`
	LastObservationAt *time.Time     `gorm:"column:last_observation_at" json:"last_observation_at,omitempty"`
	MasteryHistory    datatypes.JSON `gorm:"type:jsonb;column:mastery_history" json:"mastery_history"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CompetencyState) TableName() string { return "competency_state" }

func (cs *CompetencyState) BeforeCreate(*gorm.DB) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	return nil
}

// MasterySnapshot is one immutable point in a competency's mastery history.
type MasterySnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	PKnown         float64   `json:"p_known"`
	WasCorrect     bool      `json:"was_correct"`
	ResponseTimeMs *float64  `json:"response_time_ms,omitempty"`
}

// BKTParams is the plain-value view of the state's model parameters, used by
// the pure BKT math.
type BKTParams struct {
	PLearn float64 `json:"p_learn"`
	PGuess float64 `json:"p_guess"`
	PSlip  float64 `json:"p_slip"`
	PKnown float64 `json:"p_known"`
}

func (cs *CompetencyState) Params() BKTParams {
	return BKTParams{PLearn: cs.PLearn, PGuess: cs.PGuess, PSlip: cs.PSlip, PKnown: cs.PKnown}
}

// History decodes the JSONB mastery history. A missing or empty column
// decodes to an empty slice.
func (cs *CompetencyState) History() ([]MasterySnapshot, error) {
	if len(cs.MasteryHistory) == 0 {
		return []MasterySnapshot{}, nil
	}
	var out []MasterySnapshot
	if err := json.Unmarshal(cs.MasteryHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (cs *CompetencyState) SetHistory(history []MasterySnapshot) error {
	if history == nil {
		history = []MasterySnapshot{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	cs.MasteryHistory = datatypes.JSON(raw)
	return nil
}
