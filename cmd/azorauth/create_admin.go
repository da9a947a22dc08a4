package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/covenantlabs/azor-auth/internal/auth/app"
	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
)

var (
	createAdminEmail    string
	createAdminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Creates a user with the administrator role. When --password is
omitted a random one is generated and printed once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()
		cryptox.SetPepperPath(cfg.PepperFile)

		db, err := app.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ApplyMigrations(); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		password := createAdminPassword
		generated := false
		if password == "" {
			password, err = cryptox.GenerateToken(cryptox.TokenSize128)
			if err != nil {
				return fmt.Errorf("generate password: %w", err)
			}
			generated = true
		}

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		users := &service.UserService{
			Store:    db,
			Audit:    &service.AuditService{Store: db, Logger: logger},
			Notifier: notify.Nop{},
		}

		user, err := users.Create(cmd.Context(), "", createAdminEmail, password, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		fmt.Printf("created admin %s (%s)\n", user.Email, user.ID)
		if generated {
			fmt.Printf("password: %s\n", password)
		}
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&createAdminEmail, "email", "", "email address for the admin account")
	createAdminCmd.Flags().StringVar(&createAdminPassword, "password", "", "password (random when omitted)")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(createAdminCmd)
}
