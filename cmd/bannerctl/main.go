// Command bannerctl runs maintenance tasks and the queue worker outside the
// HTTP server.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/appnity/bannerstudio-backend/internal/config"
	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "bannerctl",
	Short:         "Banner Studio maintenance and worker commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
		logger.Init(config.AppConfig.Env)
	},
}

// connect opens the configured database into database.DB.
func connect() {
	database.Connect()
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, tokenCmd, workerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("bannerctl failed")
		os.Exit(1)
	}
}
