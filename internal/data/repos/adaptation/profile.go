package adaptation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/platform/logger"
	"github.com/pathwise/pathwise-backend/internal/types"
)

type ProfileRepo interface {
	GetByLearnerID(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.AdaptationProfile, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.AdaptationProfile) error
	Save(ctx context.Context, tx *gorm.DB, row *types.AdaptationProfile) error
	UpsertCompetencyState(ctx context.Context, tx *gorm.DB, row *types.CompetencyState) error
}

type profileRepo struct {
	db         *gorm.DB
	log        *logger.Logger
	historyCap int
}

// NewProfileRepo builds the profile store. historyCap bounds each competency
// state's mastery history at the persistence boundary.
func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger, historyCap int) ProfileRepo {
	return &profileRepo{
		db:         db,
		log:        baseLog.With("repo", "ProfileRepo"),
		historyCap: historyCap,
	}
}

// GetByLearnerID loads the profile with its competency states. Returns
// (nil, nil) when the learner has no profile yet.
func (r *profileRepo) GetByLearnerID(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.AdaptationProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.AdaptationProfile
	err := transaction.WithContext(ctx).
		Preload("CompetencyStates").
		Where("learner_id = ?", learnerID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *profileRepo) Create(ctx context.Context, tx *gorm.DB, row *types.AdaptationProfile) error {
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

// Save persists the profile and its competency states. Each state's mastery
// history is truncated to the most recent historyCap entries first, so the
// stored aggregate never grows unbounded.
func (r *profileRepo) Save(ctx context.Context, tx *gorm.DB, row *types.AdaptationProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	for _, cs := range row.CompetencyStates {
		if err := r.truncateHistory(cs); err != nil {
			return err
		}
	}

	if err := transaction.WithContext(ctx).
		Omit("CompetencyStates").
		Save(row).Error; err != nil {
		return err
	}
	for _, cs := range row.CompetencyStates {
		if err := r.upsertState(ctx, transaction, cs); err != nil {
			return err
		}
	}
	return nil
}

func (r *profileRepo) UpsertCompetencyState(ctx context.Context, tx *gorm.DB, row *types.CompetencyState) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if err := r.truncateHistory(row); err != nil {
		return err
	}
	return r.upsertState(ctx, transaction, row)
}

func (r *profileRepo) upsertState(ctx context.Context, transaction *gorm.DB, row *types.CompetencyState) error {
	if row.ID == uuid.Nil {
		return transaction.WithContext(ctx).Create(row).Error
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *profileRepo) truncateHistory(cs *types.CompetencyState) error {
	if cs == nil || r.historyCap <= 0 {
		return nil
	}
	history, err := cs.History()
	if err != nil {
		return err
	}
	if len(history) <= r.historyCap {
		return nil
	}
	return cs.SetHistory(history[len(history)-r.historyCap:])
}
