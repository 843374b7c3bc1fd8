package main

import (
	"fmt"
	"os"

	"github.com/sattva-labs/sattva/internal/cli"
	"github.com/sattva-labs/sattva/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sattvad",
		Short: "Sattva daemon and admin CLI",
		Long:  "Sattva daemon for running the chat API server and inspecting index artifacts",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
