package dto

type MediaItem struct {
	URL  string `json:"url" binding:"required,url"`
	Type string `json:"type" binding:"required"`
}

type UpdateMediaRequest struct {
	ID    string      `json:"id" binding:"required"`
	Media []MediaItem `json:"media" binding:"required,dive"`
}

type AnalyzeMediaRequest struct {
	ComplaintID string      `json:"complaintId" binding:"required"`
	MediaURLs   []MediaItem `json:"mediaUrls" binding:"required,min=1,dive"`
}

type TranscribeAudioRequest struct {
	AudioData string `json:"audioData" binding:"required"`
	MimeType  string `json:"mimeType"`
}
