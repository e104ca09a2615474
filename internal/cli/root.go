// Package cli implements the opentab command-line interface.
//
// This package uses global variables to manage CLI state, which is the
// standard pattern for Cobra-based CLI applications. The globals are
// initialized in PersistentPreRunE.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/opentab/internal/config"
)

var (
	// Global flags
	configPath string
	logLevel   string

	// Global state initialized in PersistentPreRunE
	cfg    *config.Config
	logger hclog.Logger
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "opentab",
	Short: "A Bitcoin Cash micropayment facilitator",
	Long: `Opentab verifies and settles x402 micropayments against a running tab:
payers fund a UTXO paying the facilitator once, then draw many small debits
against it without touching the chain per call.

Example:
  opentab serve
  opentab rebuild-index`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
}

// Execute runs the root command. Errors are silenced inside cobra, so they
// are printed here before the process exits non-zero.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

func initGlobals() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	cfg = loaded
	logger = config.NewLogger(cfg)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}
