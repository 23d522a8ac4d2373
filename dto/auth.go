package dto

type AdminAuthRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Action   string `json:"action"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type AdminActivityRequest struct {
	Action  string `json:"action" binding:"required"`
	Details string `json:"details"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
