package contact

import (
	"net/http"
	"strconv"
	"strings"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/model"

	"github.com/gin-gonic/gin"
)

func ContactController(router *gin.RouterGroup, d *controller.Deps) {
	router.POST("/contact", func(c *gin.Context) {
		SubmitContact(c, d)
	})
}

// AdminContactController must be mounted on a guarded group.
func AdminContactController(router *gin.RouterGroup, d *controller.Deps) {
	router.GET("/admin/contacts", func(c *gin.Context) {
		ListContacts(c, d)
	})
}

func SubmitContact(c *gin.Context, d *controller.Deps) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name, a valid email and a message are required"})
		return
	}
	m := &model.ContactMessage{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: d.Clock(),
	}
	if m.Name == "" || m.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name, a valid email and a message are required"})
		return
	}

	id, err := d.Store.CreateContact(c, m)
	if err != nil {
		d.Log.Error("create contact failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "message": "Thank you for contacting us"})
}

func ListContacts(c *gin.Context, d *controller.Deps) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	list, err := d.Store.ListContacts(c, limit)
	if err != nil {
		d.Log.Error("list contacts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch messages"})
		return
	}
	if list == nil {
		list = []model.ContactMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "contacts": list})
}
