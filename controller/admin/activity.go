package admin

import (
	"net/http"
	"strconv"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/middleware"
	"civicvoice/model"

	"github.com/gin-gonic/gin"
)

func ActivityController(router *gin.RouterGroup, d *controller.Deps) {
	router.POST("/admin-activity", func(c *gin.Context) {
		LogActivity(c, d)
	})
	router.GET("/admin-activity", func(c *gin.Context) {
		ListActivity(c, d)
	})
}

func LogActivity(c *gin.Context, d *controller.Deps) {
	var req dto.AdminActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Action is required"})
		return
	}
	claims, _ := middleware.Claims(c)

	a := &model.AdminActivity{AdminID: claims.AdminID, Action: req.Action, Details: req.Details, CreatedAt: d.Clock()}
	if _, err := d.Store.AppendActivity(c, a); err != nil {
		d.Log.Error("append activity failed", "admin_id", claims.AdminID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to log activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": a})
}

// ListActivity shows the caller's own log; a super admin sees everyone's
// or one admin's via ?adminId=.
func ListActivity(c *gin.Context, d *controller.Deps) {
	claims, _ := middleware.Claims(c)
	adminID := claims.AdminID
	if claims.Role == model.RoleSuperAdmin {
		adminID = c.Query("adminId")
	}
	limit := queryLimit(c, 50)

	list, err := d.Store.ListActivity(c, adminID, limit)
	if err != nil {
		d.Log.Error("list activity failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch activity"})
		return
	}
	if list == nil {
		list = []model.AdminActivity{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": list})
}

// recordActivity is best effort; the action it describes already happened.
func recordActivity(c *gin.Context, d *controller.Deps, adminID, action, details string) {
	a := &model.AdminActivity{AdminID: adminID, Action: action, Details: details, CreatedAt: d.Clock()}
	if _, err := d.Store.AppendActivity(c, a); err != nil {
		d.Log.Warn("append activity failed", "admin_id", adminID, "action", action, "error", err)
	}
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > 500 {
		return 500
	}
	return n
}
