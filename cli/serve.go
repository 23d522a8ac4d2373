package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"civicvoice/config"
	"civicvoice/connection"
	"civicvoice/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var noScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the stuck-complaint sweeper",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the periodic sweep in this process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := connection.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	var runner *cron.Cron
	if !noScheduler {
		runner, err = scheduler.Start(cfg, app.Deps.Analyzer, app.Deps.Store, log)
		if err != nil {
			_ = app.Close(context.Background())
			return err
		}
	}

	serveErr := connection.StartServer(ctx, app)

	if runner != nil {
		<-runner.Stop().Done()
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), connection.ShutdownTimeout)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		log.Warn("app close", "error", err)
	}
	return serveErr
}
