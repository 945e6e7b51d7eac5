package adaptation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/platform/logger"
	"github.com/pathwise/pathwise-backend/internal/types"
)

type EventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, row *types.AdaptationEvent) error
	// QueryByLearner returns a learner's events oldest-first, optionally
	// narrowed to one session and/or a lower time bound.
	QueryByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, sessionID *uuid.UUID, since *time.Time) ([]*types.AdaptationEvent, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) Append(ctx context.Context, tx *gorm.DB, row *types.AdaptationEvent) error {
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

func (r *eventRepo) QueryByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, sessionID *uuid.UUID, since *time.Time) ([]*types.AdaptationEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Where("learner_id = ?", learnerID)
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var rows []*types.AdaptationEvent
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
