package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/appnity/bannerstudio-backend/internal/app"
	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/services"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued design and iteration jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		connect()
		database.InitRedis()
		if database.Redis == nil {
			return fmt.Errorf("worker needs Redis: set REDIS_ADDR")
		}

		comps, err := app.Build(ctx, config.AppConfig, database.DB, database.Redis)
		if err != nil {
			return err
		}
		queue := comps.Queue
		if queue == nil {
			// The worker always consumes the queue, whatever mode the API runs in.
			queue = services.NewJobQueue(database.Redis, services.DefaultQueueKey)
		}

		logger.Info().Msg("Worker started")
		return services.NewWorker(queue, comps.Designer).Run(ctx)
	},
}
