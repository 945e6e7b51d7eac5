package adaptation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/platform/logger"
	"github.com/pathwise/pathwise-backend/internal/types"
)

type RuleRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AdaptationRule, error)
	// ListActive returns the tenant's active rules in ascending priority
	// order; scope narrows the listing when non-nil.
	ListActive(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, scope *types.RuleScope) ([]*types.AdaptationRule, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.AdaptationRule) error
	Update(ctx context.Context, tx *gorm.DB, row *types.AdaptationRule) error
}

type ruleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return &ruleRepo{db: db, log: baseLog.With("repo", "RuleRepo")}
}

func (r *ruleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AdaptationRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.AdaptationRule
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ruleRepo) ListActive(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, scope *types.RuleScope) ([]*types.AdaptationRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true)
	if scope != nil {
		query = query.Where("scope = ?", *scope)
	}

	var rows []*types.AdaptationRule
	if err := query.Order("priority ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ruleRepo) Create(ctx context.Context, tx *gorm.DB, row *types.AdaptationRule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *ruleRepo) Update(ctx context.Context, tx *gorm.DB, row *types.AdaptationRule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
		return err
	}
	return nil
}
