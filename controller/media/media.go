package media

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/model"
	"civicvoice/services"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	analyzeConcurrency = 3
	insightPrefix      = "Image Analysis: "
)

func MediaController(router *gin.RouterGroup, d *controller.Deps) {
	router.POST("/transcribe-audio", func(c *gin.Context) {
		TranscribeAudio(c, d)
	})
	router.POST("/analyze-media", func(c *gin.Context) {
		AnalyzeMedia(c, d)
	})
}

func TranscribeAudio(c *gin.Context, d *controller.Deps) {
	var req dto.TranscribeAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No audio data provided"})
		return
	}

	audio, mimeType, err := decodeAudio(req.AudioData, req.MimeType)
	if err != nil || len(audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Audio data is not valid base64"})
		return
	}

	text, err := d.Classifier.Transcribe(c, audio, mimeType)
	if err != nil {
		d.Log.Warn("transcription failed", "mime_type", mimeType, "bytes", len(audio), "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrClassifierDisabled) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"success": false, "error": "Failed to transcribe audio"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transcription": text})
}

// decodeAudio accepts raw base64 or a data: URL, whose MIME type wins over
// the one sent alongside.
func decodeAudio(raw, mimeType string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:") {
		if i := strings.Index(raw, ","); i >= 0 {
			meta := strings.TrimPrefix(raw[:i], "data:")
			if mt := strings.TrimSuffix(meta, ";base64"); mt != "" {
				mimeType = mt
			}
			raw = raw[i+1:]
		}
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(raw)
	}
	return data, mimeType, err
}

type insight struct {
	URL      string `json:"url"`
	Analysis string `json:"analysis,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AnalyzeMedia describes each image attached to a complaint and stores the
// combined reading as the complaint's media analysis.
func AnalyzeMedia(c *gin.Context, d *controller.Deps) {
	var req dto.AnalyzeMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing complaintId or mediaUrls"})
		return
	}
	if !d.Classifier.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Media analysis is not configured"})
		return
	}

	complaint, err := d.Store.GetComplaint(c, req.ComplaintID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Complaint not found"})
		return
	}
	if err != nil {
		d.Log.Error("get complaint failed", "complaint_id", req.ComplaintID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch complaint"})
		return
	}

	for _, m := range req.MediaURLs {
		if services.MediaKind(m.Type) == "image" && !d.Fetcher.Allowed(m.URL) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Media URL is not allowed"})
			return
		}
	}

	var (
		mu       sync.Mutex
		insights []insight
	)
	g, ctx := errgroup.WithContext(c)
	g.SetLimit(analyzeConcurrency)
	for _, m := range req.MediaURLs {
		if services.MediaKind(m.Type) != "image" {
			continue
		}
		g.Go(func() error {
			out := insight{URL: m.URL}
			data, contentType, err := d.Fetcher.Fetch(ctx, m.URL)
			if err == nil {
				if services.MediaKind(contentType) != "image" {
					contentType = m.Type
				}
				out.Analysis, err = d.Classifier.DescribeImage(ctx, data, contentType)
			}
			if err != nil {
				d.Log.Warn("media analysis failed", "complaint_id", complaint.ID, "url", m.URL, "error", err)
				out.Error = "analysis failed"
			}
			mu.Lock()
			insights = append(insights, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ordered := orderLike(req.MediaURLs, insights)
	var parts []string
	for _, in := range ordered {
		if in.Analysis != "" {
			parts = append(parts, insightPrefix+in.Analysis)
		}
	}
	combined := strings.Join(parts, "\n\n")
	if combined != "" {
		if err := d.Store.SetMediaAnalysis(c, complaint.ID, combined); err != nil {
			d.Log.Error("save media analysis failed", "complaint_id", complaint.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save media analysis"})
			return
		}
		d.Publish(c, model.EventComplaintMedia, complaint)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"insights":      ordered,
		"mediaAnalysis": combined,
	})
}

func orderLike(items []dto.MediaItem, insights []insight) []insight {
	byURL := make(map[string]insight, len(insights))
	for _, in := range insights {
		byURL[in.URL] = in
	}
	out := make([]insight, 0, len(insights))
	for _, m := range items {
		if in, ok := byURL[m.URL]; ok {
			out = append(out, in)
			delete(byURL, m.URL)
		}
	}
	return out
}
