package cli

import (
	"context"
	"fmt"
	"time"

	"civicvoice/config"
	"civicvoice/connection"
	"civicvoice/scheduler"

	"github.com/spf13/cobra"
)

var sweepAfter time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-run analysis once for complaints stuck in submitted",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepAfter, "after", 0, "only complaints older than this (default SWEEP_AFTER)")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig((*config.Config).ValidateStore)
	if err != nil {
		return err
	}
	defer log.Sync()
	if sweepAfter > 0 {
		cfg.SweepAfter = sweepAfter
	}

	ctx := cmd.Context()
	app, err := connection.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.AnalysisTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Warn("close app", "error", err)
		}
	}()

	n, err := scheduler.Sweep(ctx, app.Deps.Store, app.Deps.Analyzer, cfg.SweepAfter, time.Now().UTC(), log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "re-analyzed %d complaint(s)\n", n)
	return nil
}
