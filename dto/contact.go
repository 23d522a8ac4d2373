package dto

type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"max=300"`
	Message string `json:"message" binding:"required,max=5000"`
}
