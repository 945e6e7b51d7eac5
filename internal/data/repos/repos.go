package repos

import (
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/data/repos/adaptation"
	"github.com/pathwise/pathwise-backend/internal/platform/logger"
)

type ProfileRepo = adaptation.ProfileRepo
type RuleRepo = adaptation.RuleRepo
type EventRepo = adaptation.EventRepo

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger, historyCap int) ProfileRepo {
	return adaptation.NewProfileRepo(db, baseLog, historyCap)
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return adaptation.NewRuleRepo(db, baseLog)
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return adaptation.NewEventRepo(db, baseLog)
}
