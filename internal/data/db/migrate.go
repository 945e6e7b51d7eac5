package db

import (
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/types"
)

// AutoMigrate creates or updates the adaptation engine tables.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.AdaptationProfile{},
		&types.CompetencyState{},
		&types.AdaptationRule{},
		&types.AdaptationEvent{},
	)
}
