package migrations

import (
	"gorm.io/gorm"
)

// Migration002AddDesignLookupIndexes adds the composite indexes behind the
// per-user design history and the iteration listing.
// Plain CREATE INDEX IF NOT EXISTS runs on both PostgreSQL and SQLite.
func Migration002AddDesignLookupIndexes() Migration {
	return Migration{
		ID:        "002_add_design_lookup_indexes",
		Name:      "Add design lookup indexes",
		DependsOn: []string{"001_seed_system_settings"},
		Up: func(db *gorm.DB) error {
			// Optimizes: WHERE user_id = ? ORDER BY created_at DESC
			idx1 := `
				CREATE INDEX IF NOT EXISTS idx_designs_user_created
				ON designs (user_id, created_at DESC)
			`
			if err := db.Exec(idx1).Error; err != nil {
				return err
			}

			// Optimizes: WHERE initial_design_id = ? AND status = ?
			idx2 := `
				CREATE INDEX IF NOT EXISTS idx_design_iterations_design_status
				ON design_iterations (initial_design_id, status)
			`
			return db.Exec(idx2).Error
		},
		Down: func(db *gorm.DB) error {
			if err := db.Exec(`DROP INDEX IF EXISTS idx_design_iterations_design_status`).Error; err != nil {
				return err
			}
			return db.Exec(`DROP INDEX IF EXISTS idx_designs_user_created`).Error
		},
	}
}
