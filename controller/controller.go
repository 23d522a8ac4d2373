package controller

import (
	"context"
	"time"

	"civicvoice/config"
	"civicvoice/logger"
	"civicvoice/model"
	"civicvoice/realtime"
	"civicvoice/services"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
)

// Deps is everything the route groups share. Uploader and Hub may be nil
// when the corresponding backend is not configured.
type Deps struct {
	Config     *config.Config
	Log        *logger.Logger
	Store      store.Store
	Analyzer   *services.Analyzer
	Classifier *services.Classifier
	Events     services.EventPublisher
	Uploader   services.MediaUploader
	Fetcher    *services.MediaFetcher
	Hub        *realtime.Hub
	Now        func() time.Time
}

func (d *Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// Publish sends a complaint event; failures are only logged.
func (d *Deps) Publish(ctx context.Context, typ model.EventType, c *model.Complaint) {
	if d.Events == nil {
		return
	}
	ev := model.Event{Type: typ, ComplaintID: c.ID, Status: c.Status, Priority: c.Priority, At: d.Clock()}
	if err := d.Events.Publish(ctx, ev); err != nil {
		d.Log.Warn("publish event failed", "type", typ, "complaint_id", c.ID, "error", err)
	}
}

func HealthController(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Api is running!"})
	})
}
