package complaint

import (
	"errors"
	"net/http"
	"strings"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/model"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
)

func ComplaintController(router *gin.RouterGroup, d *controller.Deps) {
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is working!", "timestamp": d.Clock()})
	})
	router.POST("/submit-complaint", func(c *gin.Context) {
		SubmitComplaint(c, d)
	})
	router.GET("/complaints/:userId", func(c *gin.Context) {
		ListUserComplaints(c, d)
	})
	router.GET("/complaint/:id", func(c *gin.Context) {
		GetComplaint(c, d)
	})
}

func SubmitComplaint(c *gin.Context, d *controller.Deps) {
	var req dto.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Description is required"})
		return
	}
	category, ok := model.ParseCategory(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown category: " + req.Category})
		return
	}

	now := d.Clock()
	complaint := model.Complaint{
		Description: description,
		Category:    category,
		UserID:      strings.TrimSpace(req.UserID),
		Status:      model.StatusSubmitted,
		Priority:    model.PriorityMedium,
		Media:       []model.Media{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if category == model.CategoryOther {
		complaint.CustomCategory = strings.TrimSpace(req.CustomCategory)
	}
	if complaint.UserID == "" {
		complaint.UserID = model.AnonymousUser
	}
	if req.Location != nil {
		complaint.Location = &model.Location{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	id, err := d.Store.CreateComplaint(c, &complaint)
	if err != nil {
		d.Log.Error("create complaint failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to submit complaint"})
		return
	}

	d.Publish(c, model.EventComplaintCreated, &complaint)
	d.Analyzer.AnalyzeAsync(id, description, category)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
		"message": "Complaint submitted successfully. AI analysis in progress.",
	})
}

func ListUserComplaints(c *gin.Context, d *controller.Deps) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "User ID is required"})
		return
	}

	list, err := d.Store.ListComplaints(c, store.ComplaintFilter{UserID: userID})
	if err != nil {
		d.Log.Error("list complaints failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch complaints"})
		return
	}
	if list == nil {
		list = []model.Complaint{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "complaints": list})
}

func GetComplaint(c *gin.Context, d *controller.Deps) {
	id := c.Param("id")
	complaint, err := d.Store.GetComplaint(c, id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Complaint not found"})
		return
	}
	if err != nil {
		d.Log.Error("get complaint failed", "complaint_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch complaint"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "complaint": complaint})
}
