package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdaptationProfile is the single mutable aggregate of the adaptation
// engine: one row per (tenant, learner). Only the signal-processing write
// path mutates it; every other operation derives read-only views.
type AdaptationProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"learner_id"`

	EMAAccuracy       float64    `gorm:"column:ema_accuracy;not null;default:0.5" json:"ema_accuracy"`
	EMAResponseTimeMs float64    `gorm:"column:ema_response_time_ms;not null;default:0" json:"ema_response_time_ms"`
	EMAEngagement     float64    `gorm:"column:ema_engagement;not null;default:0.5" json:"ema_engagement"`
	EMAHintUsage      float64    `gorm:"column:ema_hint_usage;not null;default:0" json:"ema_hint_usage"`
	EMASkipRate       float64    `gorm:"column:ema_skip_rate;not null;default:0" json:"ema_skip_rate"`
	EMALastUpdated    *time.Time `gorm:"column:ema_last_updated" json:"ema_last_updated,omitempty"`

	CurrentDifficulty float64 `gorm:"column:current_difficulty;not null;default:0.5" json:"current_difficulty"`
	TargetSuccessRate float64 `gorm:"column:target_success_rate;not null;default:0.8" json:"target_success_rate"`
	SessionCount      int     `gorm:"column:session_count;not null;default:0" json:"session_count"`
	TotalTimeMinutes  float64 `gorm:"column:total_time_minutes;not null;default:0" json:"total_time_minutes"`

	CompetencyStates []*CompetencyState `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProfileID;references:ID" json:"competency_states,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdaptationProfile) TableName() string { return "adaptation_profile" }

func (p *AdaptationProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CompetencyStateFor returns the state tracked for a competency, or nil.
func (p *AdaptationProfile) CompetencyStateFor(competencyID uuid.UUID) *CompetencyState {
	for _, cs := range p.CompetencyStates {
		if cs != nil && cs.CompetencyID == competencyID {
			return cs
		}
	}
	return nil
}
