package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create tables and apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		return migrations.NewMigrator(database.DB).Run()
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the most recently applied migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		return migrations.NewMigrator(database.DB).Rollback()
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List registered migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		if err := database.DB.AutoMigrate(&migrations.MigrationRecord{}); err != nil {
			return err
		}
		applied, err := migrations.NewMigrator(database.DB).Applied()
		if err != nil {
			return err
		}
		for _, m := range migrations.GetMigrations() {
			state := "pending"
			if applied[m.ID] {
				state = "applied"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", m.ID, state)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateRollbackCmd, migrateStatusCmd)
}
