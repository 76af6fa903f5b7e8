package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wasteboard/frontend/login"
	"wasteboard/infrastructure/rbac"
)

func seedAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset the administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("WASTEBOARD_ADMIN_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("password required (--password or WASTEBOARD_ADMIN_PASSWORD)")
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := login.UpsertUserPasswordHash(cmd.Context(), db, username, rbac.RoleAdmin, nil, password); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded admin user (username=%s)\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}
