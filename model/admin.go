package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"

	AdminActive   = "active"
	AdminDisabled = "disabled"
)

var DefaultPermissions = []string{
	"view_complaints",
	"manage_complaints",
	"view_analytics",
	"manage_users",
	"system_settings",
}

type Admin struct {
	ID           string     `firestore:"-" json:"id"`
	Email        string     `firestore:"email" json:"email"`
	PasswordHash string     `firestore:"passwordHash" json:"-"`
	Name         string     `firestore:"name" json:"name"`
	Role         string     `firestore:"role" json:"role"`
	Status       string     `firestore:"status" json:"status"`
	Permissions  []string   `firestore:"permissions" json:"permissions"`
	LoginCount   int64      `firestore:"loginCount" json:"loginCount"`
	LastLogin    *time.Time `firestore:"lastLogin" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `firestore:"createdAt" json:"createdAt"`
}

func (a *Admin) IsActive() bool {
	return a.Status == "" || a.Status == AdminActive
}

type AdminActivity struct {
	ID        string    `firestore:"-" json:"id"`
	AdminID   string    `firestore:"adminId" json:"adminId"`
	Action    string    `firestore:"action" json:"action"`
	Details   string    `firestore:"details" json:"details"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

type AccessClaims struct {
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}
