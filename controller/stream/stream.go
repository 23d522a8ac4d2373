package stream

import (
	"net/http"

	"civicvoice/controller"
	"civicvoice/middleware"

	"github.com/gin-gonic/gin"
)

// StreamController mounts the dashboard websocket on a guarded group.
func StreamController(router *gin.RouterGroup, d *controller.Deps) {
	router.GET("/admin/stream", func(c *gin.Context) {
		Stream(c, d)
	})
}

func Stream(c *gin.Context, d *controller.Deps) {
	if d.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are not enabled"})
		return
	}
	claims, _ := middleware.Claims(c)
	if err := d.Hub.Serve(c.Writer, c.Request, claims.AdminID); err != nil {
		d.Log.Warn("websocket upgrade failed", "admin_id", claims.AdminID, "error", err)
	}
}
