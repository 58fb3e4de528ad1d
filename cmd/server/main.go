package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/appnity/bannerstudio-backend/internal/app"
	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/handlers"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
	"github.com/appnity/bannerstudio-backend/internal/migrations"
	"github.com/appnity/bannerstudio-backend/internal/routes"
	"github.com/appnity/bannerstudio-backend/internal/seeds"
	"github.com/appnity/bannerstudio-backend/internal/services"
	"github.com/appnity/bannerstudio-backend/internal/validation"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

func main() {
	// 0. Load Config & Initialize Logger
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Env)

	logger.Info().Str("environment", cfg.Env).Msg("Starting Banner Studio backend...")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	database.Connect()
	database.InitRedis()

	logger.Info().Msg("Running database migrations...")
	if err := migrations.NewMigrator(database.DB).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	if _, err := seeds.SeedPromptTemplates(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed prompt templates")
	}

	// 2. Services
	comps, err := app.Build(ctx, cfg, database.DB, database.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build designer")
	}
	handlers.Setup(comps.Designer, comps.Queue)
	validation.RegisterWithGin()

	// 3. Router
	r := routes.NewRouter(routes.Options{StaticDir: comps.StaticDir})

	// Inline generation holds the request open for the whole run.
	writeTimeout := 15 * time.Second
	if comps.Queue == nil {
		writeTimeout = cfg.GenerationTimeout + 30*time.Second
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	for _, limiter := range middleware.Limiters() {
		limiter := limiter
		g.Go(func() error {
			limiter.RunCleanup(gctx, time.Minute, 10*time.Minute)
			return nil
		})
	}

	if comps.Queue != nil && cfg.RunWorker {
		worker := services.NewWorker(comps.Queue, comps.Designer)
		g.Go(func() error {
			logger.Info().Msg("In-process worker started")
			return worker.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server exited gracefully")
}
