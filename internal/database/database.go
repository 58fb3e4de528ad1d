package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

const sqlitePrefix = "sqlite:"

// Open connects to the database named by dsn. A "sqlite:" prefix selects the
// SQLite driver (local development, tests); anything else is a PostgreSQL DSN.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if dialector.Name() == "sqlite" {
		// SQLite serialises writers anyway; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// Connect opens config.AppConfig.DatabaseURL into the package-level DB.
func Connect() {
	db, err := Open(config.AppConfig.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	DB = db
	logger.Info().Str("dialect", db.Dialector.Name()).Msg("Connected to database")
}

// Ping reports whether the database answers.
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialised")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SettingCacheKey is the Redis key caching a system setting value.
func SettingCacheKey(key string) string {
	return "settings:" + key
}

const settingCacheTTL = 30 * time.Second

// IsFeatureEnabled checks a system setting toggle. Missing settings count as
// enabled so a fresh database does not block generation.
func IsFeatureEnabled(key string) bool {
	if DB == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var value string
	if err := CacheGet(ctx, SettingCacheKey(key), &value); err == nil {
		return value != "false"
	}

	var setting struct {
		Value string
	}
	if err := DB.Table("system_settings").Select("value").Where("key = ?", key).Limit(1).Find(&setting).Error; err != nil {
		return true
	}
	_ = CacheSet(ctx, SettingCacheKey(key), setting.Value, settingCacheTTL)
	return setting.Value != "false"
}
