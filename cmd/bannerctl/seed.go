package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/migrations"
	"github.com/appnity/bannerstudio-backend/internal/seeds"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the built-in prompt templates that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		if err := migrations.NewMigrator(database.DB).Run(); err != nil {
			return err
		}
		created, err := seeds.SeedPromptTemplates(database.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d prompt template(s) created\n", created)
		return nil
	},
}
