package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for mrzgate.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mrzgate",
		Short: "Passport MRZ reader and BAC key deriver",
		Long: `mrzgate locates the machine-readable zone on a passport photo, reads it
with the configured text-recognition engines, repairs misread characters
using the check digits and derives the Basic Access Control keys.

Configuration comes from MRZGATE_* environment variables, optionally
overlaid with a YAML file given by --config.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewKeysCmd())
	cmd.AddCommand(NewTokenCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
