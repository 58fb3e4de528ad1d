package migrations

import (
	"time"

	"github.com/appnity/bannerstudio-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration001SeedSystemSettings turns the generation kill switches on so that
// operators have rows to flip instead of having to insert them.
func Migration001SeedSystemSettings() Migration {
	keys := []string{models.SettingGenerationEnabled, models.SettingIterationsEnabled}

	return Migration{
		ID:   "001_seed_system_settings",
		Name: "Seed generation feature toggles",
		Up: func(db *gorm.DB) error {
			for _, key := range keys {
				setting := models.SystemSettings{
					Key:       key,
					Value:     "true",
					UpdatedBy: "system",
					UpdatedAt: time.Now(),
				}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&setting).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(db *gorm.DB) error {
			return db.Where("key IN ?", keys).Delete(&models.SystemSettings{}).Error
		},
	}
}
