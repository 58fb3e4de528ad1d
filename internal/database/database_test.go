package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTestDB(t *testing.T) {
	t.Helper()
	db, err := Open("sqlite:file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE system_settings (key TEXT PRIMARY KEY, value TEXT)").Error)

	prev := DB
	DB = db
	t.Cleanup(func() { DB = prev })
}

func useTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	prev := Redis
	Redis = client
	t.Cleanup(func() {
		Redis = prev
		client.Close()
	})
	return mr
}

func TestOpen_SQLitePrefix(t *testing.T) {
	db, err := Open("sqlite:file::memory:")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestIsFeatureEnabled_DefaultsToEnabled(t *testing.T) {
	useTestDB(t)
	assert.True(t, IsFeatureEnabled("generation_enabled"))

	require.NoError(t, DB.Exec("INSERT INTO system_settings (key, value) VALUES (?, ?)", "generation_enabled", "false").Error)
	assert.False(t, IsFeatureEnabled("generation_enabled"))
}

func TestIsFeatureEnabled_CachesInRedis(t *testing.T) {
	useTestDB(t)
	mr := useTestRedis(t)

	require.NoError(t, DB.Exec("INSERT INTO system_settings (key, value) VALUES (?, ?)", "iterations_enabled", "false").Error)
	assert.False(t, IsFeatureEnabled("iterations_enabled"))
	assert.True(t, mr.Exists(SettingCacheKey("iterations_enabled")))

	// The cached value wins until it is invalidated.
	require.NoError(t, DB.Exec("UPDATE system_settings SET value = ? WHERE key = ?", "true", "iterations_enabled").Error)
	assert.False(t, IsFeatureEnabled("iterations_enabled"))

	require.NoError(t, CacheInvalidate(context.Background(), SettingCacheKey("iterations_enabled")))
	assert.True(t, IsFeatureEnabled("iterations_enabled"))
}

func TestCacheHelpers_NoRedis(t *testing.T) {
	prev := Redis
	Redis = nil
	t.Cleanup(func() { Redis = prev })

	ctx := context.Background()
	assert.NoError(t, CacheSet(ctx, "k", "v", 0))
	var out string
	assert.ErrorIs(t, CacheGet(ctx, "k", &out), redis.Nil)
	assert.NoError(t, CacheInvalidate(ctx, "k"))
}
