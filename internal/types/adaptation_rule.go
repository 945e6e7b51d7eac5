package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RuleScope is the closed set of scopes a decision-gate rule can target.
type RuleScope string

const (
	ScopeGlobal     RuleScope = "global"
	ScopeDomain     RuleScope = "domain"
	ScopeCompetency RuleScope = "competency"
)

func (s RuleScope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeDomain, ScopeCompetency:
		return true
	}
	return false
}

// ConditionOp is the closed set of condition operators.
type ConditionOp string

const (
	OpGT      ConditionOp = "gt"
	OpGTE     ConditionOp = "gte"
	OpLT      ConditionOp = "lt"
	OpLTE     ConditionOp = "lte"
	OpEQ      ConditionOp = "eq"
	OpNEQ     ConditionOp = "neq"
	OpBetween ConditionOp = "between"
)

func (op ConditionOp) Valid() bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ, OpBetween:
		return true
	}
	return false
}

const (
	ConditionLogicAnd = "AND"
	ConditionLogicOr  = "OR"
)

// Condition compares one live signal reading against a threshold. Between
// requires SecondaryValue as the upper bound.
type Condition struct {
	Signal         SignalKind  `json:"signal"`
	Operator       ConditionOp `json:"operator"`
	Value          float64     `json:"value"`
	SecondaryValue *float64    `json:"secondary_value,omitempty"`
}

// RuleAction is the pedagogical action a rule fires.
type RuleAction struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// AdaptationRule is a tenant-scoped decision-gate rule. Rules are evaluated
// strictly in ascending priority order; the first satisfied rule wins.
type AdaptationRule struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_tenant_priority,priority:1" json:"tenant_id"`
	Name     string    `gorm:"column:name;not null" json:"name"`

	Scope   RuleScope `gorm:"column:scope;not null;default:global" json:"scope"`
	ScopeID *string   `gorm:"column:scope_id" json:"scope_id,omitempty"`

	Priority       int            `gorm:"column:priority;not null;index:idx_tenant_priority,priority:2" json:"priority"`
	Conditions     datatypes.JSON `gorm:"type:jsonb;column:conditions" json:"conditions"`
	ConditionLogic string         `gorm:"column:condition_logic;not null;default:AND" json:"condition_logic"`
	Action         datatypes.JSON `gorm:"type:jsonb;column:action" json:"action"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdaptationRule) TableName() string { return "adaptation_rule" }

func (r *AdaptationRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *AdaptationRule) ConditionList() ([]Condition, error) {
	if len(r.Conditions) == 0 {
		return []Condition{}, nil
	}
	var out []Condition
	if err := json.Unmarshal(r.Conditions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AdaptationRule) SetConditions(conds []Condition) error {
	if conds == nil {
		conds = []Condition{}
	}
	raw, err := json.Marshal(conds)
	if err != nil {
		return err
	}
	r.Conditions = datatypes.JSON(raw)
	return nil
}

func (r *AdaptationRule) RuleAction() (*RuleAction, error) {
	if len(r.Action) == 0 {
		return nil, nil
	}
	var out RuleAction
	if err := json.Unmarshal(r.Action, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AdaptationRule) SetAction(action RuleAction) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return err
	}
	r.Action = datatypes.JSON(raw)
	return nil
}
