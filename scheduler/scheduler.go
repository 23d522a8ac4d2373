// scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"civicvoice/config"
	"civicvoice/logger"
	"civicvoice/model"
	"civicvoice/services"
	"civicvoice/store"

	"github.com/robfig/cron/v3"
)

// Sweep re-runs analysis for complaints still in submitted after
// olderThan. Each complaint gets the analyzer's own timeout, so one hung
// model call only fails that complaint. It returns how many were analysed
// successfully; failures are logged and left as analysis_failed.
func Sweep(ctx context.Context, st store.ComplaintStore, analyzer *services.Analyzer, olderThan time.Duration, now time.Time, log *logger.Logger) (int, error) {
	stuck, err := st.ListComplaints(ctx, store.ComplaintFilter{
		Statuses:      []model.Status{model.StatusSubmitted},
		CreatedBefore: now.Add(-olderThan),
	})
	if err != nil {
		return 0, fmt.Errorf("list stuck complaints: %w", err)
	}

	done := 0
	for _, c := range stuck {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := analyzer.Reanalyze(ctx, c.ID); err != nil {
			log.Warn("sweep reanalyze failed", "complaint_id", c.ID, "error", err)
			continue
		}
		done++
	}
	if len(stuck) > 0 {
		log.Info("sweep finished", "stuck", len(stuck), "analyzed", done)
	}
	return done, nil
}

// Start registers the sweep on cfg.SweepSchedule (seconds field enabled)
// and starts the cron runner. Stop the returned runner on shutdown.
func Start(cfg *config.Config, analyzer *services.Analyzer, st store.ComplaintStore, log *logger.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(cfg.SweepSchedule, func() {
		if _, err := Sweep(context.Background(), st, analyzer, cfg.SweepAfter, time.Now().UTC(), log); err != nil {
			log.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add sweep job %q: %w", cfg.SweepSchedule, err)
	}

	c.Start()
	log.Info("scheduler started", "schedule", cfg.SweepSchedule, "after", cfg.SweepAfter)
	return c, nil
}
