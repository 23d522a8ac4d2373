package complaint

import (
	"errors"
	"mime/multipart"
	"net/http"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/model"
	"civicvoice/services"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
)

const (
	maxUploadFiles = 10
	maxUploadBytes = 50 << 20
)

func MediaController(router *gin.RouterGroup, d *controller.Deps) {
	router.POST("/upload-media", func(c *gin.Context) {
		UpdateMedia(c, d)
	})
	router.POST("/complaint/:id/media", func(c *gin.Context) {
		UploadMediaFiles(c, d)
	})
}

// UpdateMedia replaces the media list with URLs the client uploaded itself.
func UpdateMedia(c *gin.Context, d *controller.Deps) {
	var req dto.UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing id or media array"})
		return
	}

	media := make([]model.Media, 0, len(req.Media))
	for _, m := range req.Media {
		media = append(media, model.Media{URL: m.URL, Type: m.Type})
	}

	if err := d.Store.SetMedia(c, req.ID, media); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Complaint not found"})
			return
		}
		d.Log.Error("update media failed", "complaint_id", req.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update media"})
		return
	}

	if updated, err := d.Store.GetComplaint(c, req.ID); err == nil {
		d.Publish(c, model.EventComplaintMedia, updated)
	} else {
		d.Log.Warn("reload complaint after media update failed", "complaint_id", req.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Media updated successfully"})
}

// UploadMediaFiles streams multipart files into the storage bucket and
// appends them to the complaint.
func UploadMediaFiles(c *gin.Context, d *controller.Deps) {
	if d.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Media storage is not configured"})
		return
	}

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

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid multipart form"})
		return
	}
	files := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["files[]"]))
	files = append(files, form.File["files"]...)
	files = append(files, form.File["files[]"]...)
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No files provided"})
		return
	}
	if len(files) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Too many files"})
		return
	}

	// Files stored before a failure are still recorded on the complaint.
	uploaded := make([]model.Media, 0, len(files))
	var (
		failStatus int
		failFile   string
	)
	for _, fh := range files {
		m, status, err := uploadFile(c, d, id, fh)
		if err != nil {
			d.Log.Error("upload media failed", "complaint_id", id, "file", fh.Filename, "error", err)
			failStatus, failFile = status, fh.Filename
			break
		}
		uploaded = append(uploaded, m)
	}

	media := complaint.Media
	if len(uploaded) > 0 {
		media, err = d.Store.AppendMedia(c, id, uploaded)
		if err != nil {
			d.Log.Error("save media failed", "complaint_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update media"})
			return
		}
		complaint.Media = media
		d.Publish(c, model.EventComplaintMedia, complaint)
	}

	if failStatus != 0 {
		c.JSON(failStatus, gin.H{"success": false, "error": "Failed to upload " + failFile, "uploaded": uploaded, "media": media})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "uploaded": uploaded, "media": media})
}

func uploadFile(c *gin.Context, d *controller.Deps, id string, fh *multipart.FileHeader) (model.Media, int, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Media{}, http.StatusBadRequest, err
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	url, err := d.Uploader.Upload(c, services.ObjectKey(id, fh.Filename, d.Clock()), contentType, f)
	if err != nil {
		return model.Media{}, http.StatusBadGateway, err
	}
	return model.Media{URL: url, Type: services.MediaKind(contentType)}, 0, nil
}
