package connection

import (
	"context"
	"errors"
	"net/http"
	"time"

	"civicvoice/controller"
	"civicvoice/controller/admin"
	"civicvoice/controller/complaint"
	"civicvoice/controller/contact"
	"civicvoice/controller/media"
	"civicvoice/controller/stream"
	"civicvoice/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const ShutdownTimeout = 30 * time.Second

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-Request-ID")
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// NewRouter registers every route group. Admin groups sit behind the
// access-token and admin guards.
func NewRouter(d *controller.Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log))
	if d.Config.OTelEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(cors.New(corsConfig(d.Config.CORSOrigins)))

	controller.HealthController(router)

	api := router.Group("/api")
	complaint.ComplaintController(api, d)
	complaint.MediaController(api, d)
	media.MediaController(api, d)
	contact.ContactController(api, d)
	admin.AuthController(api, d)

	guarded := api.Group("", middleware.AccessTokenMiddleware([]byte(d.Config.JWTSecret)), middleware.AdminMiddleware())
	admin.ActivityController(guarded, d)
	admin.AdminController(guarded, d)
	contact.AdminContactController(guarded, d)
	stream.StreamController(guarded, d)

	return router
}

// StartServer serves until ctx is cancelled, then stops accepting requests
// and waits for in-flight ones. The caller closes app afterwards.
func StartServer(ctx context.Context, app *App) error {
	srv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           NewRouter(app.Deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		app.Log.Info("shutting down http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Log.Warn("http shutdown", "error", err)
	}
	return serveErr
}
