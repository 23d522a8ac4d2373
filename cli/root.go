// Package cli is the civicvoice command line: the API server plus the
// one-off admin and maintenance commands.
package cli

import (
	"fmt"
	"os"

	"civicvoice/config"
	"civicvoice/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "civicvoice",
	Short: "Civic complaint intake and triage API",
	Long: `civicvoice accepts citizen complaints, classifies them with Gemini and
serves the admin dashboard API.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, initAdminCmd, sweepCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(validate func(*config.Config) error) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
