package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/services"
)

func baseConfig(t *testing.T) *config.Config {
	return &config.Config{
		GenerationProvider: config.ProviderOpenAI,
		OpenAIAPIKey:       "sk-test",
		OpenAIModel:        "gpt-test",
		StorageDriver:      config.StorageLocal,
		LocalImageDir:      filepath.Join(t.TempDir(), "designs"),
		ProcessingMode:     config.ProcessingInline,
	}
}

func TestBuild_InlineLocal(t *testing.T) {
	db, err := database.Open("sqlite:file::memory:")
	require.NoError(t, err)

	comps, err := Build(context.Background(), baseConfig(t), db, nil)
	require.NoError(t, err)
	assert.Nil(t, comps.Queue)
	assert.Nil(t, comps.Designer.Cache)
	assert.DirExists(t, comps.StaticDir)
	assert.IsType(t, &services.OpenAIClient{}, comps.Designer.Generator)
	assert.IsType(t, &services.LocalStore{}, comps.Designer.Store)
}

func TestBuild_QueueMode(t *testing.T) {
	db, err := database.Open("sqlite:file::memory:")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := baseConfig(t)
	cfg.ProcessingMode = config.ProcessingQueue

	comps, err := Build(context.Background(), cfg, db, rdb)
	require.NoError(t, err)
	assert.NotNil(t, comps.Queue)
	assert.NotNil(t, comps.Designer.Cache)

	comps, err = Build(context.Background(), cfg, db, nil)
	require.NoError(t, err)
	assert.Nil(t, comps.Queue, "queue mode without redis falls back to inline")
}

func TestNewStore_S3NeedsBucket(t *testing.T) {
	cfg := baseConfig(t)
	cfg.StorageDriver = config.StorageS3
	cfg.R2AccountID = "acct"

	_, _, err := NewStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewProvider_Unknown(t *testing.T) {
	cfg := baseConfig(t)
	cfg.GenerationProvider = "dalle"

	_, _, err := NewProvider(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown GENERATION_PROVIDER")
}
