package dto

type LocationRequest struct {
	Lat float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lng float64 `json:"lng" binding:"gte=-180,lte=180"`
}

type SubmitComplaintRequest struct {
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	CustomCategory string           `json:"customCategory"`
	Location       *LocationRequest `json:"location"`
	UserID         string           `json:"userId"`
}
