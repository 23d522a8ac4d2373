package connection

import (
	"context"
	"errors"
	"fmt"

	"civicvoice/config"
	"civicvoice/controller"
	"civicvoice/logger"
	"civicvoice/realtime"
	"civicvoice/services"
)

// App owns every long-lived client behind the HTTP API, the scheduler and
// the CLI commands.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Deps   *controller.Deps
	Bus    realtime.Bus

	firebase       *Firebase
	stopForwarder  context.CancelFunc
	shutdownTraces func(context.Context) error
}

func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}
	app.shutdownTraces = InitTracing(ctx, cfg, log)

	st, fb, err := DBConnection(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.firebase = fb

	bus, err := newBus(ctx, cfg, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	app.Bus = bus

	var gen services.ContentGenerator
	if cfg.GeminiAPIKey != "" {
		g, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, nil)
		if err != nil {
			log.Warn("gemini client unavailable, complaints will be marked for manual review", "error", err)
		} else {
			gen = g
		}
	} else {
		log.Warn("GEMINI_API_KEY not set, AI analysis disabled")
	}
	classifier := services.NewClassifier(gen, log)

	notifier := services.NopNotifier()
	var uploader services.MediaUploader
	if fb != nil && fb.Messaging != nil {
		notifier = services.NewFCMNotifier(fb.Messaging, cfg.NotifyTopic, log)
	}
	if fb != nil && fb.Storage != nil {
		uploader = services.NewBucketUploader(fb.Storage, cfg.StorageBucket)
	}

	hub := realtime.NewHub(cfg.CORSOrigins, log)
	fwdCtx, cancel := context.WithCancel(context.Background())
	if err := bus.StartForwarder(fwdCtx, hub.Broadcast); err != nil {
		cancel()
		_ = bus.Close()
		_ = st.Close()
		return nil, fmt.Errorf("start event forwarder: %w", err)
	}
	app.stopForwarder = cancel

	app.Deps = &controller.Deps{
		Config:     cfg,
		Log:        log,
		Store:      st,
		Analyzer:   services.NewAnalyzer(st, classifier, bus, notifier, cfg.AnalysisTimeout, log),
		Classifier: classifier,
		Events:     bus,
		Uploader:   uploader,
		Fetcher:    services.NewMediaFetcher(nil, 0, services.BucketURLPrefixes(cfg.StorageBucket)...),
		Hub:        hub,
	}
	return app, nil
}

func newBus(ctx context.Context, cfg *config.Config, log *logger.Logger) (realtime.Bus, error) {
	if cfg.RedisAddr == "" {
		return realtime.NewLocalBus(), nil
	}
	bus, err := realtime.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, log)
	if err != nil {
		return nil, err
	}
	log.Info("using redis event bus", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	return bus, nil
}

// Close waits for background analyses (bounded by ctx) and releases every
// client in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Deps != nil {
		if err := a.Deps.Analyzer.Drain(ctx); err != nil {
			errs = append(errs, err)
		}
		a.Deps.Hub.Close()
	}
	if a.stopForwarder != nil {
		a.stopForwarder()
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus: %w", err))
		}
	}
	if a.Deps != nil {
		if err := a.Deps.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.firebase != nil {
		a.firebase.Close()
	}
	if a.shutdownTraces != nil {
		if err := a.shutdownTraces(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
