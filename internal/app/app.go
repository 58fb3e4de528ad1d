// Package app assembles the designer and its collaborators from config. Both
// the HTTP server and the CLI worker start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/internal/services"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

// ViewCacheTTL bounds how long a design view stays in Redis.
const ViewCacheTTL = 10 * time.Minute

// Components is everything built from config.
type Components struct {
	Designer *services.Designer
	// Queue is nil when generation runs inline or Redis is unavailable.
	Queue *services.JobQueue
	// StaticDir is set when images are stored on local disk.
	StaticDir string
}

// NewProvider returns the image generator and planner for cfg's provider.
func NewProvider(ctx context.Context, cfg *config.Config) (services.ImageGenerator, services.Planner, error) {
	switch cfg.GenerationProvider {
	case config.ProviderGemini, "":
		client, err := services.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiImageModel, cfg.GeminiTextModel)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case config.ProviderOpenAI:
		oc := services.DefaultOpenAIConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIModel != "" {
			oc.Model = cfg.OpenAIModel
		}
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
		if cfg.GenerationTimeout > 0 {
			oc.Timeout = cfg.GenerationTimeout
		}
		client := services.NewOpenAIClient(oc)
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown GENERATION_PROVIDER %q", cfg.GenerationProvider)
	}
}

// NewStore returns the image store for cfg's storage driver and, for the
// local driver, the directory to serve.
func NewStore(ctx context.Context, cfg *config.Config) (services.ImageStore, string, error) {
	switch cfg.StorageDriver {
	case config.StorageLocal, "":
		store, err := services.NewLocalStore(cfg.LocalImageDir)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir, nil
	case config.StorageS3:
		store, err := services.NewR2Store(ctx, services.R2Options{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// Build wires the designer. rdb may be nil; the view cache and the queue are
// then disabled and generation falls back to inline.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Components, error) {
	gen, planner, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	store, staticDir, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}

	designer := services.NewDesigner(db, gen, planner, store, cfg.GenerationTimeout)
	designer.Cache = services.NewViewCache(rdb, ViewCacheTTL)

	comps := &Components{Designer: designer, StaticDir: staticDir}
	if cfg.UsesQueue() {
		if rdb == nil {
			logger.Warn().Msg("PROCESSING_MODE=queue needs Redis, falling back to inline generation")
		} else {
			comps.Queue = services.NewJobQueue(rdb, services.DefaultQueueKey)
		}
	}

	logger.Info().
		Str("provider", cfg.GenerationProvider).
		Str("storage", cfg.StorageDriver).
		Bool("queue", comps.Queue != nil).
		Msg("Designer ready")
	return comps, nil
}
