package db

import (
	"Melodia/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return AutoMigrateModels(db,
		&model.Admin{},
		&model.Song{},
		&model.Review{},
		&model.HeroImage{},
	)
}
