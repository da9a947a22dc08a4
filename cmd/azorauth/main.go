package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "azorauth",
	Short: "Authentication service for the Azor platform",
	Long: `azorauth issues and validates session tokens, manages TOTP
enrollment and recovery codes, and exposes the admin user lifecycle
over HTTP. Configuration is read from the environment (and a local
.env file when present).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
