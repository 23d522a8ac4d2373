package admin

import (
	"errors"
	"net/http"
	"strings"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/middleware"
	"civicvoice/model"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
)

// AdminController mounts the dashboard routes; router must already carry
// the access-token and admin guards.
func AdminController(router *gin.RouterGroup, d *controller.Deps) {
	routes := router.Group("/admin")
	{
		routes.GET("/complaints", func(c *gin.Context) {
			ListComplaints(c, d)
		})
		routes.PUT("/complaints/:id/status", func(c *gin.Context) {
			UpdateStatus(c, d)
		})
		routes.POST("/complaints/:id/reanalyze", func(c *gin.Context) {
			Reanalyze(c, d)
		})
		routes.GET("/stats", func(c *gin.Context) {
			Stats(c, d)
		})
	}
}

var presetFilters = map[string]store.ComplaintFilter{
	"high":     {Priorities: []model.Priority{model.PriorityHigh, model.PriorityCritical}},
	"pending":  {Statuses: []model.Status{model.StatusSubmitted, model.StatusAnalyzed}},
	"resolved": {Statuses: []model.Status{model.StatusResolved}},
	"failed":   {Statuses: []model.Status{model.StatusAnalysisFailed}},
}

// ParseFilter reads ?filter=, ?status= and ?priority= (comma separated).
// Explicit status/priority lists narrow a preset.
func ParseFilter(c *gin.Context) (store.ComplaintFilter, error) {
	var f store.ComplaintFilter
	if name := strings.ToLower(strings.TrimSpace(c.Query("filter"))); name != "" && name != "all" {
		preset, ok := presetFilters[name]
		if !ok {
			return f, errors.New("unknown filter: " + name)
		}
		f = preset
	}
	if raw := c.Query("status"); raw != "" {
		f.Statuses = nil
		for _, part := range strings.Split(raw, ",") {
			s, ok := model.ParseStatus(part)
			if !ok {
				return f, errors.New("unknown status: " + part)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if raw := c.Query("priority"); raw != "" {
		f.Priorities = nil
		for _, part := range strings.Split(raw, ",") {
			p, ok := model.ParsePriority(part)
			if !ok {
				return f, errors.New("unknown priority: " + part)
			}
			f.Priorities = append(f.Priorities, p)
		}
	}
	f.Limit = queryLimit(c, 0)
	return f, nil
}

func ListComplaints(c *gin.Context, d *controller.Deps) {
	filter, err := ParseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	list, err := d.Store.ListComplaints(c, filter)
	if err != nil {
		d.Log.Error("admin list complaints failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch complaints"})
		return
	}
	if list == nil {
		list = []model.Complaint{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "complaints": list, "total": len(list)})
}

// UpdateStatus accepts any known status; there is no transition graph.
func UpdateStatus(c *gin.Context, d *controller.Deps) {
	id := c.Param("id")
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Status is required"})
		return
	}
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown status: " + req.Status})
		return
	}

	if err := d.Store.UpdateStatus(c, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Complaint not found"})
			return
		}
		d.Log.Error("update status failed", "complaint_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update status"})
		return
	}

	claims, _ := middleware.Claims(c)
	recordActivity(c, d, claims.AdminID, "update_status", "Complaint "+id+" set to "+string(status))
	d.Publish(c, model.EventComplaintStatus, &model.Complaint{ID: id, Status: status})
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "status": status})
}

func Reanalyze(c *gin.Context, d *controller.Deps) {
	id := c.Param("id")
	analysis, err := d.Analyzer.Reanalyze(c, id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Complaint not found"})
		return
	}

	claims, _ := middleware.Claims(c)
	recordActivity(c, d, claims.AdminID, "reanalyze", "Complaint "+id)

	if err != nil {
		d.Log.Warn("reanalyze failed", "complaint_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Analysis failed", "analysis": analysis})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}
