package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/appnity/bannerstudio-backend/pkg/utils"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a JWT for the admin prompt API",
	Long: `Sign a JWT with JWT_SECRET. The prompt template and settings endpoints
require a token whose role is ADMIN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenSubject == "" {
			return fmt.Errorf("--subject is required")
		}
		token, err := utils.GenerateToken(tokenSubject, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject (admin user id)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", utils.RoleAdmin, "role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
