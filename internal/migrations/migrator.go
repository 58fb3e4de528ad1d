package migrations

import (
	"fmt"
	"time"

	"github.com/appnity/bannerstudio-backend/internal/models"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	ID        string // Unique identifier (e.g., "001_seed_system_settings")
	Name      string // Human-readable name
	Up        func(db *gorm.DB) error
	Down      func(db *gorm.DB) error
	DependsOn []string // IDs of migrations this depends on
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoUpdateTime:nano"`
}

// TableName overrides the table name
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&models.PromptTemplate{},
		&models.Design{},
		&models.DesignIteration{},
		&models.SystemSettings{},
	}
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	log        zerolog.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
		log:        logger.Component("migrator"),
	}
}

// Run creates the tables and executes all pending migrations.
func (m *Migrator) Run() error {
	if err := m.db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.Applied()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if applied[migration.ID] {
			continue
		}

		m.log.Info().Str("migration", migration.ID).Str("name", migration.Name).Msg("Running migration")

		for _, dep := range migration.DependsOn {
			if !applied[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", migration.ID, dep)
			}
		}

		if err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}

			return tx.Create(&MigrationRecord{
				ID:   migration.ID,
				Name: migration.Name,
			}).Error
		}); err != nil {
			m.log.Error().Err(err).Str("migration", migration.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		applied[migration.ID] = true
		m.log.Info().Str("migration", migration.ID).Msg("Migration completed")
	}

	return nil
}

// Rollback reverts the most recently applied migration.
func (m *Migrator) Rollback() error {
	var last MigrationRecord
	if err := m.db.Order("applied_at DESC, id DESC").First(&last).Error; err != nil {
		return fmt.Errorf("no applied migration to roll back: %w", err)
	}

	for _, migration := range m.migrations {
		if migration.ID != last.ID {
			continue
		}
		return m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&MigrationRecord{}, "id = ?", last.ID).Error
		})
	}

	return fmt.Errorf("migration %s is recorded but not registered", last.ID)
}

// Applied returns the IDs of migrations already recorded.
func (m *Migrator) Applied() (map[string]bool, error) {
	var records []MigrationRecord
	if err := m.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	applied := make(map[string]bool, len(records))
	for _, r := range records {
		applied[r.ID] = true
	}
	return applied, nil
}

// GetMigrations returns all registered migrations in order
func GetMigrations() []Migration {
	return []Migration{
		Migration001SeedSystemSettings(),
		Migration002AddDesignLookupIndexes(),
	}
}
