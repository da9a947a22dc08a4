package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/covenantlabs/azor-auth/internal/auth/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := app.LoadConfig()

		application, err := app.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
			os.Exit(1)
		}

		if err := application.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "application error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
