package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covenantlabs/azor-auth/internal/auth/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()

		db, err := app.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ApplyMigrations(); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
